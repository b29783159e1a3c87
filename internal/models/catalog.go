package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// SyncMode selects how queue items are interpreted.
type SyncMode string

const (
	// SyncModeSingle queues bare SKU ids; each item is simulated against every seller.
	SyncModeSingle SyncMode = "single"
	// SyncModeSellerSKU queues "seller_id#sku_id" pairs, one seller per item.
	SyncModeSellerSKU SyncMode = "seller_sku"
)

// Valid reports whether m is a known mode.
func (m SyncMode) Valid() bool {
	return m == SyncModeSingle || m == SyncModeSellerSKU
}

// RuleSpec names a rule of the chain and its parameters.
type RuleSpec struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// RuleSpecs is the ordered rule configuration of a catalog, stored as JSONB.
type RuleSpecs []RuleSpec

// Value implements driver.Valuer.
func (r RuleSpecs) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *RuleSpecs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return errors.New("rule specs: unsupported scan type")
	}
}

// Catalog binds a destination catalog to an integration and its source account.
// (ExternalID, AppID) is unique.
type Catalog struct {
	ID              int            `db:"id" json:"id"`
	ExternalID      string         `db:"external_id" json:"externalId"`
	AppID           string         `db:"app_id" json:"appId"`
	Category        string         `db:"category" json:"category"`
	OwnerID         string         `db:"owner_id" json:"ownerId"`
	SourceDomain    *string        `db:"source_domain" json:"sourceDomain,omitempty"`
	SalesChannel    string         `db:"sales_channel" json:"salesChannel"`
	Sellers         pq.StringArray `db:"sellers" json:"sellers"`
	SellerAttribute string         `db:"seller_attribute" json:"sellerAttribute,omitempty"`
	SyncMode        SyncMode       `db:"sync_mode" json:"syncMode"`
	Rules           RuleSpecs      `db:"rules" json:"rules"`
	AccessToken     string         `db:"access_token" json:"-"`
	IsActive        bool           `db:"is_active" json:"isActive"`
	CreatedAt       time.Time      `db:"created_at" json:"-"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// Domain returns the bound source domain or an empty string.
func (c *Catalog) Domain() string {
	if c.SourceDomain == nil {
		return ""
	}
	return *c.SourceDomain
}
