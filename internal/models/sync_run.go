package models

import "time"

// SyncRunStatus is the final state of a sync run.
type SyncRunStatus string

const (
	SyncRunRunning   SyncRunStatus = "running"
	SyncRunCompleted SyncRunStatus = "completed"
	SyncRunPartial   SyncRunStatus = "partial"
	SyncRunFailed    SyncRunStatus = "failed"
	SyncRunSkipped   SyncRunStatus = "skipped"
)

// SyncRun records one execution of the pipeline for a catalog.
type SyncRun struct {
	ID         string        `db:"id" json:"id"`
	CatalogID  int           `db:"catalog_id" json:"catalogId"`
	Mode       SyncMode      `db:"mode" json:"mode"`
	Status     SyncRunStatus `db:"status" json:"status"`
	Valid      int           `db:"valid_count" json:"valid"`
	Invalid    int           `db:"invalid_count" json:"invalid"`
	Sent       int           `db:"sent_count" json:"sent"`
	Error      *string       `db:"error" json:"error,omitempty"`
	StartedAt  time.Time     `db:"started_at" json:"startedAt"`
	FinishedAt *time.Time    `db:"finished_at" json:"finishedAt,omitempty"`
}
