package models

import "time"

// ValidationVerdict is the persisted policy outcome of a SKU in a catalog.
// Negative verdicts are terminal.
type ValidationVerdict struct {
	ID             int       `db:"id" json:"id"`
	CatalogID      int       `db:"catalog_id" json:"catalogId"`
	SKUID          string    `db:"sku_id" json:"skuId"`
	IsValid        bool      `db:"is_valid" json:"isValid"`
	Classification string    `db:"classification" json:"classification"`
	Description    string    `db:"description" json:"description"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
