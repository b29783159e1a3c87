package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// SyncRunRepository records sync run history.
type SyncRunRepository struct {
	db *sqlx.DB
}

func NewSyncRunRepository(db *sqlx.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a run.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	const q = `
		INSERT INTO sync_runs (id, catalog_id, mode, status, valid_count, invalid_count, sent_count, error, started_at, finished_at)
		VALUES (:id, :catalog_id, :mode, :status, :valid_count, :invalid_count, :sent_count, :error, :started_at, :finished_at)`
	_, err := r.db.NamedExecContext(ctx, q, run)
	return err
}

// Finish stores the final status and counters of a run.
func (r *SyncRunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	const q = `
		UPDATE sync_runs SET
			status = $2,
			valid_count = $3,
			invalid_count = $4,
			sent_count = $5,
			error = $6,
			finished_at = $7
		WHERE id = $1`

	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		run.ID,
		run.Status,
		run.Valid,
		run.Invalid,
		run.Sent,
		run.Error,
		run.FinishedAt,
	)
	return err
}

// ListByCatalog returns the newest runs of a catalog.
func (r *SyncRunRepository) ListByCatalog(ctx context.Context, catalogID, limit int) ([]models.SyncRun, error) {
	const q = `
		SELECT id, catalog_id, mode, status, valid_count, invalid_count, sent_count, error, started_at, finished_at
		FROM sync_runs
		WHERE catalog_id = $1
		ORDER BY started_at DESC
		LIMIT $2`
	runs := []models.SyncRun{}
	if err := r.db.SelectContext(ctx, &runs, q, catalogID, limit); err != nil {
		return nil, err
	}
	return runs, nil
}
