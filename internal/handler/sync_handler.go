package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/service"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

// SyncRunner starts and reports sync runs.
type SyncRunner interface {
	Check(ctx context.Context, req service.SyncRequest) error
	Dispatch(ctx context.Context, req service.SyncRequest) string
	Runs(ctx context.Context, catalogID, limit int) ([]models.SyncRun, error)
}

// CatalogUploader drains a catalog's pending records.
type CatalogUploader interface {
	UploadCatalog(ctx context.Context, catalogID int) (service.UploadSummary, error)
}

// SyncHandler is the admin surface for manual sync and upload.
type SyncHandler struct {
	baseCtx  context.Context
	runner   SyncRunner
	uploader CatalogUploader
}

// NewSyncHandler creates a SyncHandler. Dispatched runs inherit baseCtx so
// they stop on shutdown instead of with the triggering request.
func NewSyncHandler(baseCtx context.Context, runner SyncRunner, uploader CatalogUploader) *SyncHandler {
	return &SyncHandler{baseCtx: baseCtx, runner: runner, uploader: uploader}
}

// SyncRequest is the body of a manual sync trigger.
type SyncRequest struct {
	Sellers    []string `json:"sellers"`
	SKUs       []string `json:"skus"`
	UpdateMode bool     `json:"update_mode"`
	Mode       string   `json:"mode"`
}

// TriggerSync handles POST /v1/admin/catalogs/:id/sync.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	catalogID, ok := catalogIDParam(c)
	if !ok {
		return
	}

	var body SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
	}

	req := service.SyncRequest{
		CatalogID:  catalogID,
		Sellers:    body.Sellers,
		SKUs:       body.SKUs,
		UpdateMode: body.UpdateMode,
		Mode:       models.SyncMode(body.Mode),
	}
	if err := h.runner.Check(c.Request.Context(), req); err != nil {
		writeSyncError(c, err)
		return
	}

	runID := h.runner.Dispatch(h.baseCtx, req)
	log.Info().Int("catalog_id", catalogID).Str("run_id", runID).Msg("Manual sync scheduled")
	utils.Success(c, http.StatusAccepted, "Sync scheduled", gin.H{"runId": runID})
}

// ListRuns handles GET /v1/admin/catalogs/:id/runs.
func (h *SyncHandler) ListRuns(c *gin.Context) {
	catalogID, ok := catalogIDParam(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		utils.Error(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100")
		return
	}

	runs, err := h.runner.Runs(c.Request.Context(), catalogID, limit)
	if err != nil {
		log.Error().Err(err).Int("catalog_id", catalogID).Msg("Failed to list sync runs")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sync runs")
		return
	}
	utils.Success(c, http.StatusOK, "Sync runs", runs)
}

// Upload handles POST /v1/admin/catalogs/:id/upload.
func (h *SyncHandler) Upload(c *gin.Context) {
	catalogID, ok := catalogIDParam(c)
	if !ok {
		return
	}

	sum, err := h.uploader.UploadCatalog(c.Request.Context(), catalogID)
	if err != nil {
		if utils.FromError(c, err) {
			return
		}
		log.Error().Err(err).Int("catalog_id", catalogID).Msg("Manual upload failed")
		utils.Error(c, http.StatusBadGateway, "UPLOAD_FAILED", err.Error())
		return
	}
	utils.Success(c, http.StatusOK, "Upload completed", sum)
}

func catalogIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		utils.Error(c, http.StatusBadRequest, "INVALID_CATALOG_ID", "Catalog id must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeSyncError(c *gin.Context, err error) {
	if utils.FromError(c, err) {
		return
	}
	log.Error().Err(err).Msg("Sync precheck failed")
	utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to schedule sync")
}
