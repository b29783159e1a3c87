package service

import (
	"context"
	"time"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/pkg/classifier"
	"github.com/GTDGit/catalog_sync/pkg/metacatalog"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

// Source is the inventory API surface used by the pipeline.
type Source interface {
	ListActiveSellers(ctx context.Context, domain, salesChannel string) ([]vtex.Seller, error)
	ListActiveSKUIDs(ctx context.Context, domain, salesChannel string) ([]string, error)
	GetProductDetails(ctx context.Context, skuID, domain string) (*vtex.SKUDetails, error)
	GetProductSpecification(ctx context.Context, productID, domain string) ([]vtex.Specification, error)
	SimulateSingleSeller(ctx context.Context, skuID, sellerID, domain, salesChannel string) (*vtex.Availability, error)
	SimulateMultiSeller(ctx context.Context, skuID string, sellers []string, domain, salesChannel string) (map[string]vtex.Availability, error)
}

// PolicyClassifier classifies product text.
type PolicyClassifier interface {
	ValidatePolicy(ctx context.Context, description string) (*classifier.Result, error)
}

// CatalogUploader submits batches to the destination catalog.
type CatalogUploader interface {
	BatchUpload(ctx context.Context, catalogID, accessToken string, req metacatalog.BatchRequest) (*metacatalog.BatchResponse, error)
}

// CatalogStore reads catalog bindings.
type CatalogStore interface {
	GetByID(ctx context.Context, id int) (*models.Catalog, error)
	GetByExternalID(ctx context.Context, appID, externalID string) (*models.Catalog, error)
	ListActive(ctx context.Context) ([]models.Catalog, error)
}

// VerdictStore persists validation verdicts. Get returns nil when no verdict exists.
type VerdictStore interface {
	Get(ctx context.Context, catalogID int, skuID string) (*models.ValidationVerdict, error)
	Create(ctx context.Context, v *models.ValidationVerdict) error
}

// PendingStore holds records staged for upload.
type PendingStore interface {
	// BulkUpsert inserts records, replacing the payload of an existing
	// pending row with the same (catalog, product id).
	BulkUpsert(ctx context.Context, records []models.PendingUpload) (int, error)
	// ClaimLatest marks up to limit pending rows as processing, one per
	// product id (newest wins), and deletes their older pending siblings.
	ClaimLatest(ctx context.Context, catalogID, limit int) ([]models.PendingUpload, error)
	MarkStatus(ctx context.Context, ids []int64, status models.PendingStatus) error
	CatalogsWithPending(ctx context.Context) ([]int, error)
	DeleteByStatus(ctx context.Context, status models.PendingStatus) (int64, error)
	ResetStatus(ctx context.Context, from, to models.PendingStatus) (int64, error)
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// UploadLogStore records delivered records.
type UploadLogStore interface {
	BulkCreate(ctx context.Context, logs []models.UploadLog) error
}

// RunStore records sync runs.
type RunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, run *models.SyncRun) error
	ListByCatalog(ctx context.Context, catalogID, limit int) ([]models.SyncRun, error)
}

// Notifier alerts operators.
type Notifier interface {
	Notify(ctx context.Context, subject string, fields map[string]any) error
}

// RunEvents receives pipeline progress for live admin views. Implementations
// must not block.
type RunEvents interface {
	RunStarted(run *models.SyncRun)
	RunFinished(run *models.SyncRun)
	UploadFinished(catalogID, records int, err error)
}

type nopEvents struct{}

func (nopEvents) RunStarted(*models.SyncRun)     {}
func (nopEvents) RunFinished(*models.SyncRun)    {}
func (nopEvents) UploadFinished(int, int, error) {}
