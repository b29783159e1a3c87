package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/catalog_sync/internal/models"
)

const catalogColumns = `id, external_id, app_id, category, owner_id, source_domain, sales_channel,
	sellers, seller_attribute, sync_mode, rules, access_token, is_active, created_at, updated_at`

// CatalogRepository reads catalog bindings.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetByID returns the catalog with id, or nil when it does not exist.
func (r *CatalogRepository) GetByID(ctx context.Context, id int) (*models.Catalog, error) {
	const q = `SELECT ` + catalogColumns + ` FROM catalogs WHERE id = $1`
	return r.getOne(ctx, q, id)
}

// GetByExternalID returns the catalog bound to (appID, externalID), or nil.
func (r *CatalogRepository) GetByExternalID(ctx context.Context, appID, externalID string) (*models.Catalog, error) {
	const q = `SELECT ` + catalogColumns + ` FROM catalogs WHERE app_id = $1 AND external_id = $2`
	return r.getOne(ctx, q, appID, externalID)
}

// ListActive returns every active catalog ordered by id.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]models.Catalog, error) {
	const q = `SELECT ` + catalogColumns + ` FROM catalogs WHERE is_active = true ORDER BY id`
	var catalogs []models.Catalog
	if err := r.db.SelectContext(ctx, &catalogs, q); err != nil {
		return nil, err
	}
	return catalogs, nil
}

func (r *CatalogRepository) getOne(ctx context.Context, q string, args ...any) (*models.Catalog, error) {
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var c models.Catalog
	if err := stmt.GetContext(ctx, &c, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
