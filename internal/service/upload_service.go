package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/metrics"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/utils"
	"github.com/GTDGit/catalog_sync/pkg/metacatalog"
)

// ErrNoHandles means the destination accepted the request but returned no handles.
var ErrNoHandles = errors.New("batch upload returned no handles")

// UploadSummary counts the outcome of draining one catalog.
type UploadSummary struct {
	Batches  int `json:"batches"`
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`
}

// CleanupResult counts the rows touched by Cleanup.
type CleanupResult struct {
	Deleted   int64 `json:"deleted"`
	Reset     int64 `json:"reset"`
	Reclaimed int64 `json:"reclaimed"`
}

// UploadOptions configures the UploadService.
type UploadOptions struct {
	BatchSize         int
	ProcessingTimeout time.Duration
	DefaultToken      string
}

// UploadService delivers pending records to the destination catalog.
type UploadService struct {
	catalogs CatalogStore
	pending  PendingStore
	logs     UploadLogStore
	uploader CatalogUploader
	notifier Notifier
	events   RunEvents
	opts     UploadOptions
	kicks    chan int
}

// NewUploadService constructs an UploadService.
func NewUploadService(catalogs CatalogStore, pending PendingStore, logs UploadLogStore, uploader CatalogUploader, notifier Notifier, opts UploadOptions) *UploadService {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &UploadService{
		catalogs: catalogs,
		pending:  pending,
		logs:     logs,
		uploader: uploader,
		notifier: notifier,
		events:   nopEvents{},
		opts:     opts,
		kicks:    make(chan int, 64),
	}
}

// SetEvents wires a live event sink for batch outcomes.
func (s *UploadService) SetEvents(events RunEvents) {
	s.events = events
}

// Kick asks the upload worker to drain a catalog soon. It never blocks; a
// dropped kick is covered by the periodic sweep.
func (s *UploadService) Kick(catalogID int) {
	select {
	case s.kicks <- catalogID:
	default:
	}
}

// Kicks exposes pending kicks to the upload worker.
func (s *UploadService) Kicks() <-chan int {
	return s.kicks
}

// UploadAll drains every catalog with pending records.
func (s *UploadService) UploadAll(ctx context.Context) error {
	ids, err := s.pending.CatalogsWithPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalogs with pending records: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.UploadCatalog(ctx, id); err != nil {
			log.Error().Err(err).Int("catalog_id", id).Msg("Upload failed")
		}
	}
	return nil
}

// UploadCatalog submits batches until the catalog has no pending records or a
// batch fails.
func (s *UploadService) UploadCatalog(ctx context.Context, catalogID int) (UploadSummary, error) {
	var sum UploadSummary
	catalog, err := s.catalogs.GetByID(ctx, catalogID)
	if err != nil {
		return sum, err
	}
	if catalog == nil {
		return sum, utils.ErrCatalogNotFound
	}

	for ctx.Err() == nil {
		batch, err := s.pending.ClaimLatest(ctx, catalog.ID, s.opts.BatchSize)
		if err != nil {
			return sum, fmt.Errorf("failed to claim pending records: %w", err)
		}
		if len(batch) == 0 {
			return sum, nil
		}
		sum.Batches++

		if err := s.uploadBatch(ctx, catalog, batch); err != nil {
			sum.Failed += len(batch)
			if errors.Is(err, ErrNoHandles) {
				return sum, nil
			}
			return sum, err
		}
		sum.Uploaded += len(batch)

		if len(batch) < s.opts.BatchSize {
			return sum, nil
		}
	}
	return sum, ctx.Err()
}

func (s *UploadService) uploadBatch(ctx context.Context, catalog *models.Catalog, batch []models.PendingUpload) error {
	ids := make([]int64, len(batch))
	payloads := make([]json.RawMessage, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
		payloads[i] = p.Payload
	}

	token := catalog.AccessToken
	if token == "" {
		token = s.opts.DefaultToken
	}

	resp, err := s.uploader.BatchUpload(ctx, catalog.ExternalID, token, metacatalog.NewUpdateBatch(payloads))
	if err != nil {
		s.markError(ctx, catalog.ID, ids)
		metrics.UploadBatches.WithLabelValues(metrics.ResultError).Inc()
		metrics.UploadRecords.WithLabelValues(metrics.ResultError).Add(float64(len(batch)))
		log.Error().Err(err).Int("catalog_id", catalog.ID).Int("records", len(batch)).Msg("Batch upload failed")
		s.notify(ctx, catalog, len(batch), err)
		s.events.UploadFinished(catalog.ID, len(batch), err)
		return err
	}
	if len(resp.Handles) == 0 {
		s.markError(ctx, catalog.ID, ids)
		metrics.UploadBatches.WithLabelValues(metrics.ResultError).Inc()
		metrics.UploadRecords.WithLabelValues(metrics.ResultError).Add(float64(len(batch)))
		log.Warn().Int("catalog_id", catalog.ID).Int("records", len(batch)).Msg("Batch upload returned no handles")
		s.events.UploadFinished(catalog.ID, len(batch), ErrNoHandles)
		return ErrNoHandles
	}

	if err := s.pending.MarkStatus(ctx, ids, models.PendingStatusSuccess); err != nil {
		return fmt.Errorf("failed to mark batch success: %w", err)
	}
	logs := make([]models.UploadLog, len(batch))
	for i, p := range batch {
		logs[i] = models.UploadLog{
			CatalogID: catalog.ID,
			ProductID: p.ProductID,
			Handle:    resp.Handles[0],
			Payload:   p.Payload,
		}
	}
	if err := s.logs.BulkCreate(ctx, logs); err != nil {
		log.Warn().Err(err).Int("catalog_id", catalog.ID).Msg("Failed to write upload audit log")
	}

	metrics.UploadBatches.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.UploadRecords.WithLabelValues(metrics.ResultSuccess).Add(float64(len(batch)))
	log.Info().
		Int("catalog_id", catalog.ID).
		Int("records", len(batch)).
		Strs("handles", resp.Handles).
		Msg("Batch uploaded")
	s.events.UploadFinished(catalog.ID, len(batch), nil)
	return nil
}

func (s *UploadService) markError(ctx context.Context, catalogID int, ids []int64) {
	if err := s.pending.MarkStatus(context.WithoutCancel(ctx), ids, models.PendingStatusError); err != nil {
		log.Error().Err(err).Int("catalog_id", catalogID).Msg("Failed to mark batch as error")
	}
}

func (s *UploadService) notify(ctx context.Context, catalog *models.Catalog, records int, cause error) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(context.WithoutCancel(ctx), "Catalog upload failed", map[string]any{
		"catalog_id":  catalog.ID,
		"external_id": catalog.ExternalID,
		"app_id":      catalog.AppID,
		"records":     records,
		"error":       cause.Error(),
	})
	if err != nil {
		log.Warn().Err(err).Int("catalog_id", catalog.ID).Msg("Failed to notify operators")
	}
}

// Cleanup deletes delivered records, re-queues failed ones and reclaims
// records stuck in processing longer than the processing timeout.
func (s *UploadService) Cleanup(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	var err error

	if res.Deleted, err = s.pending.DeleteByStatus(ctx, models.PendingStatusSuccess); err != nil {
		return res, fmt.Errorf("failed to delete uploaded records: %w", err)
	}
	if res.Reset, err = s.pending.ResetStatus(ctx, models.PendingStatusError, models.PendingStatusPending); err != nil {
		return res, fmt.Errorf("failed to reset failed records: %w", err)
	}
	if res.Reclaimed, err = s.pending.ReclaimStale(ctx, time.Now().Add(-s.opts.ProcessingTimeout)); err != nil {
		return res, fmt.Errorf("failed to reclaim stale records: %w", err)
	}
	return res, nil
}
