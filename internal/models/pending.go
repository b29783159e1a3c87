package models

import (
	"encoding/json"
	"time"
)

// PendingStatus is the lifecycle of a staged upload.
type PendingStatus string

const (
	PendingStatusPending    PendingStatus = "pending"
	PendingStatusProcessing PendingStatus = "processing"
	PendingStatusSuccess    PendingStatus = "success"
	PendingStatusError      PendingStatus = "error"
)

// PendingUpload is a ProductRecord staged for delivery to the destination catalog.
type PendingUpload struct {
	ID        int64           `db:"id" json:"id"`
	CatalogID int             `db:"catalog_id" json:"catalogId"`
	ProductID string          `db:"product_id" json:"productId"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Status    PendingStatus   `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// UploadLog is the audit entry of one successfully submitted record.
type UploadLog struct {
	ID        int64           `db:"id" json:"id"`
	CatalogID int             `db:"catalog_id" json:"catalogId"`
	ProductID string          `db:"product_id" json:"productId"`
	Handle    string          `db:"handle" json:"handle"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}
