package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// UploadLogRepository stores the audit trail of delivered records.
type UploadLogRepository struct {
	db *sqlx.DB
}

func NewUploadLogRepository(db *sqlx.DB) *UploadLogRepository {
	return &UploadLogRepository{db: db}
}

type uploadLogRow struct {
	CatalogID int    `db:"catalog_id"`
	ProductID string `db:"product_id"`
	Handle    string `db:"handle"`
	Payload   string `db:"payload"`
}

// BulkCreate inserts logs in one statement.
func (r *UploadLogRepository) BulkCreate(ctx context.Context, logs []models.UploadLog) error {
	if len(logs) == 0 {
		return nil
	}
	rows := make([]uploadLogRow, len(logs))
	for i, l := range logs {
		rows[i] = uploadLogRow{CatalogID: l.CatalogID, ProductID: l.ProductID, Handle: l.Handle, Payload: string(l.Payload)}
	}
	const q = `
		INSERT INTO upload_logs (catalog_id, product_id, handle, payload)
		VALUES (:catalog_id, :product_id, :handle, CAST(:payload AS JSONB))`
	_, err := r.db.NamedExecContext(ctx, q, rows)
	return err
}
