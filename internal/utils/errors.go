package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrCatalogNotFound    = errors.New("CATALOG_NOT_FOUND")
	ErrCatalogInactive    = errors.New("CATALOG_INACTIVE")
	ErrCatalogUnbound     = errors.New("CATALOG_SOURCE_UNBOUND")
	ErrAlreadySyncing     = errors.New("ALREADY_SYNCING")
	ErrInvalidSKU         = errors.New("INVALID_SKU")
	ErrInvalidQueueItem   = errors.New("INVALID_QUEUE_ITEM")
	ErrValidationFailure  = errors.New("VALIDATION_FAILURE")
	ErrPersistenceFailure = errors.New("PERSISTENCE_FAILURE")
	ErrInvalidMode        = errors.New("INVALID_SYNC_MODE")
	ErrInvalidRules       = errors.New("INVALID_RULES")
)
