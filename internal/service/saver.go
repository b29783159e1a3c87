package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

// Saver buffers records of one catalog and persists them as pending uploads.
type Saver struct {
	pending   PendingStore
	catalogID int
	batchSize int
	kick      func(catalogID int)

	mu     sync.Mutex
	buffer []models.ProductRecord
}

// NewSaver constructs a Saver. kick, when set, is called after every
// successful flush so the upload pipeline picks the records up.
func NewSaver(pending PendingStore, catalogID, batchSize int, kick func(catalogID int)) *Saver {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Saver{pending: pending, catalogID: catalogID, batchSize: batchSize, kick: kick}
}

// Add buffers records and returns the current buffer length.
func (s *Saver) Add(records ...models.ProductRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, records...)
	return len(s.buffer)
}

// Buffered returns the current buffer length.
func (s *Saver) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Full reports whether the buffer reached the batch size.
func (s *Saver) Full() bool {
	return s.Buffered() >= s.batchSize
}

// Flush persists the buffer and returns the number of records written. The
// buffer is discarded whether or not the write succeeds.
func (s *Saver) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	uploads, err := s.toPending(batch)
	if err != nil {
		log.Error().Err(err).Int("catalog_id", s.catalogID).Int("records", len(batch)).Msg("Failed to encode records, batch discarded")
		return 0, fmt.Errorf("%w: %w", utils.ErrPersistenceFailure, err)
	}

	n, err := s.pending.BulkUpsert(ctx, uploads)
	if err != nil {
		log.Error().Err(err).Int("catalog_id", s.catalogID).Int("records", len(uploads)).Msg("Failed to save pending records, batch discarded")
		return 0, fmt.Errorf("%w: %w", utils.ErrPersistenceFailure, err)
	}

	log.Info().Int("catalog_id", s.catalogID).Int("records", n).Msg("Saved pending records")
	if s.kick != nil {
		s.kick(s.catalogID)
	}
	return n, nil
}

// toPending encodes the batch, keeping the last record per product id.
func (s *Saver) toPending(batch []models.ProductRecord) ([]models.PendingUpload, error) {
	index := make(map[string]int, len(batch))
	out := make([]models.PendingUpload, 0, len(batch))
	for i := range batch {
		payload, err := json.Marshal(&batch[i])
		if err != nil {
			return nil, err
		}
		up := models.PendingUpload{
			CatalogID: s.catalogID,
			ProductID: batch[i].ID,
			Payload:   payload,
			Status:    models.PendingStatusPending,
		}
		if j, ok := index[up.ProductID]; ok {
			out[j] = up
			continue
		}
		index[up.ProductID] = len(out)
		out = append(out, up)
	}
	return out, nil
}
