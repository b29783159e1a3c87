package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// PendingRepository stages mapped records between extraction and upload.
type PendingRepository struct {
	db *sqlx.DB
}

func NewPendingRepository(db *sqlx.DB) *PendingRepository {
	return &PendingRepository{db: db}
}

// pendingRow is the insert shape; payload travels as text so jsonb accepts it.
type pendingRow struct {
	CatalogID int    `db:"catalog_id"`
	ProductID string `db:"product_id"`
	Payload   string `db:"payload"`
	Status    string `db:"status"`
}

// BulkUpsert replaces still-pending rows of the same products and inserts records.
// Rows already claimed for upload are left alone.
func (r *PendingRepository) BulkUpsert(ctx context.Context, records []models.PendingUpload) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	byCatalog := make(map[int][]string)
	rows := make([]pendingRow, 0, len(records))
	for _, rec := range records {
		byCatalog[rec.CatalogID] = append(byCatalog[rec.CatalogID], rec.ProductID)
		status := rec.Status
		if status == "" {
			status = models.PendingStatusPending
		}
		rows = append(rows, pendingRow{
			CatalogID: rec.CatalogID,
			ProductID: rec.ProductID,
			Payload:   string(rec.Payload),
			Status:    string(status),
		})
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	const del = `
		DELETE FROM pending_uploads
		WHERE catalog_id = $1 AND status = 'pending' AND product_id = ANY($2)`
	for catalogID, ids := range byCatalog {
		if _, err := tx.ExecContext(ctx, del, catalogID, pq.Array(ids)); err != nil {
			return 0, err
		}
	}

	const ins = `
		INSERT INTO pending_uploads (catalog_id, product_id, payload, status)
		VALUES (:catalog_id, :product_id, CAST(:payload AS JSONB), :status)`
	if _, err := tx.NamedExecContext(ctx, ins, rows); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ClaimLatest moves up to limit pending rows of a catalog to processing.
// Only the newest row per product id is claimed; its older pending siblings are deleted.
func (r *PendingRepository) ClaimLatest(ctx context.Context, catalogID, limit int) ([]models.PendingUpload, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const claim = `
		WITH latest AS (
			SELECT DISTINCT ON (product_id) id
			FROM pending_uploads
			WHERE catalog_id = $1 AND status = 'pending'
			ORDER BY product_id, updated_at DESC, id DESC
		), picked AS (
			SELECT id FROM pending_uploads
			WHERE id IN (SELECT id FROM latest)
			ORDER BY id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE pending_uploads p
		SET status = 'processing', updated_at = NOW()
		FROM picked
		WHERE p.id = picked.id
		RETURNING p.id, p.catalog_id, p.product_id, p.payload, p.status, p.created_at, p.updated_at`

	var claimed []models.PendingUpload
	if err := tx.SelectContext(ctx, &claimed, claim, catalogID, limit); err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, tx.Commit()
	}

	productIDs := make([]string, len(claimed))
	for i, p := range claimed {
		productIDs[i] = p.ProductID
	}
	const prune = `
		DELETE FROM pending_uploads
		WHERE catalog_id = $1 AND status = 'pending' AND product_id = ANY($2)`
	if _, err := tx.ExecContext(ctx, prune, catalogID, pq.Array(productIDs)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkStatus sets the status of the given rows.
func (r *PendingRepository) MarkStatus(ctx context.Context, ids []int64, status models.PendingStatus) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE pending_uploads SET status = $1, updated_at = NOW() WHERE id = ANY($2)`
	_, err := r.db.ExecContext(ctx, q, status, pq.Array(ids))
	return err
}

// CatalogsWithPending lists catalogs that have rows waiting for upload.
func (r *PendingRepository) CatalogsWithPending(ctx context.Context) ([]int, error) {
	const q = `SELECT DISTINCT catalog_id FROM pending_uploads WHERE status = 'pending' ORDER BY catalog_id`
	var ids []int
	if err := r.db.SelectContext(ctx, &ids, q); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PendingRepository) DeleteByStatus(ctx context.Context, status models.PendingStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_uploads WHERE status = $1`, status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PendingRepository) ResetStatus(ctx context.Context, from, to models.PendingStatus) (int64, error) {
	const q = `UPDATE pending_uploads SET status = $2, updated_at = NOW() WHERE status = $1`
	res, err := r.db.ExecContext(ctx, q, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReclaimStale returns processing rows untouched since olderThan to pending.
func (r *PendingRepository) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	const q = `
		UPDATE pending_uploads SET status = 'pending', updated_at = NOW()
		WHERE status = 'processing' AND updated_at < $1`
	res, err := r.db.ExecContext(ctx, q, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
