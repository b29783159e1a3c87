package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

func rec(id, title string) models.ProductRecord {
	return models.ProductRecord{ID: id, Title: title}
}

func TestSaverFlushDeduplicatesAndKicks(t *testing.T) {
	store := &fakePending{}
	var kicked []int
	s := NewSaver(store, 9, 2, func(id int) { kicked = append(kicked, id) })

	s.Add(rec("a", "old"), rec("b", "b"))
	assert.True(t, s.Full())
	s.Add(rec("a", "new"))

	n, err := s.Flush(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, s.Buffered())
	assert.Equal(t, []int{9}, kicked)

	rows := store.byStatus(models.PendingStatusPending)
	require.Len(t, rows, 2)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, "new", payload["title"])
	_, hasDetail := payload["Detail"]
	assert.False(t, hasDetail)
}

func TestSaverDiscardsBufferOnFailure(t *testing.T) {
	store := &fakePending{upsertErr: errBoom}
	kicks := 0
	s := NewSaver(store, 1, 10, func(int) { kicks++ })
	s.Add(rec("a", "a"))

	n, err := s.Flush(t.Context())
	assert.ErrorIs(t, err, utils.ErrPersistenceFailure)
	assert.Zero(t, n)
	assert.Zero(t, s.Buffered(), "a failed batch is not retried in-process")
	assert.Zero(t, kicks)

	store.upsertErr = nil
	n, err = s.Flush(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, store.upserts, "empty flush does not touch the store")
}
