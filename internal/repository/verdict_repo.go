package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// VerdictRepository persists negative validation verdicts.
type VerdictRepository struct {
	db *sqlx.DB
}

func NewVerdictRepository(db *sqlx.DB) *VerdictRepository {
	return &VerdictRepository{db: db}
}

// Get returns the verdict for (catalogID, skuID), or nil when none exists.
func (r *VerdictRepository) Get(ctx context.Context, catalogID int, skuID string) (*models.ValidationVerdict, error) {
	const q = `
		SELECT id, catalog_id, sku_id, is_valid, classification, description, created_at
		FROM validation_verdicts
		WHERE catalog_id = $1 AND sku_id = $2`
	var v models.ValidationVerdict
	if err := r.db.GetContext(ctx, &v, q, catalogID, skuID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts v. An existing verdict for the same SKU is kept.
func (r *VerdictRepository) Create(ctx context.Context, v *models.ValidationVerdict) error {
	const q = `
		INSERT INTO validation_verdicts (catalog_id, sku_id, is_valid, classification, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (catalog_id, sku_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, v.CatalogID, v.SKUID, v.IsValid, v.Classification, v.Description)
	return err
}
