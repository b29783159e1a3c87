package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/pkg/metacatalog"
)

type uploadFixture struct {
	pending  *fakePending
	uploader *fakeUploader
	logs     *fakeLogs
	notifier *fakeNotifier
	svc      *UploadService
}

func newUploadFixture(batchSize int) *uploadFixture {
	f := &uploadFixture{
		pending:  &fakePending{},
		uploader: &fakeUploader{handles: []string{"h-1"}},
		logs:     &fakeLogs{},
		notifier: &fakeNotifier{},
	}
	catalogs := &fakeCatalogs{items: map[int]*models.Catalog{1: testCatalog()}}
	f.svc = NewUploadService(catalogs, f.pending, f.logs, f.uploader, f.notifier, UploadOptions{
		BatchSize:         batchSize,
		ProcessingTimeout: 30 * time.Minute,
		DefaultToken:      "tkn",
	})
	return f
}

func (f *uploadFixture) stage(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		payload, _ := json.Marshal(map[string]string{"id": id})
		_, err := f.pending.BulkUpsert(t.Context(), []models.PendingUpload{{CatalogID: 1, ProductID: id, Payload: payload}})
		require.NoError(t, err)
	}
}

func TestUploadCatalogSuccess(t *testing.T) {
	f := newUploadFixture(2)
	f.stage(t, "a", "b", "c")

	sum, err := f.svc.UploadCatalog(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, UploadSummary{Batches: 2, Uploaded: 3}, sum)

	require.Len(t, f.uploader.requests, 2)
	first := f.uploader.requests[0]
	assert.Equal(t, metacatalog.ItemTypeProduct, first.ItemType)
	require.Len(t, first.Requests, 2)
	assert.Equal(t, metacatalog.MethodUpdate, first.Requests[0].Method)

	assert.Len(t, f.pending.byStatus(models.PendingStatusSuccess), 3)
	require.Len(t, f.logs.logs, 3)
	assert.Equal(t, "h-1", f.logs.logs[0].Handle)
	assert.Empty(t, f.notifier.subjects)
}

func TestUploadLatestPendingWins(t *testing.T) {
	f := newUploadFixture(10)
	f.pending.rows = []models.PendingUpload{
		{ID: 1, CatalogID: 1, ProductID: "a", Payload: json.RawMessage(`{"v":1}`), Status: models.PendingStatusPending, UpdatedAt: time.Unix(100, 0)},
		{ID: 2, CatalogID: 1, ProductID: "a", Payload: json.RawMessage(`{"v":2}`), Status: models.PendingStatusPending, UpdatedAt: time.Unix(200, 0)},
	}

	_, err := f.svc.UploadCatalog(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, f.uploader.requests, 1)
	require.Len(t, f.uploader.requests[0].Requests, 1)
	assert.JSONEq(t, `{"v":2}`, string(f.uploader.requests[0].Requests[0].Data))
	assert.Empty(t, f.pending.byStatus(models.PendingStatusPending), "superseded versions are dropped")
}

func TestUploadNoHandlesMarksError(t *testing.T) {
	f := newUploadFixture(10)
	f.uploader.handles = nil
	f.stage(t, "a", "b")

	sum, err := f.svc.UploadCatalog(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Len(t, f.pending.byStatus(models.PendingStatusError), 2)
	assert.Empty(t, f.notifier.subjects, "an empty response is not an exception")
	assert.Empty(t, f.logs.logs)
}

func TestUploadExceptionNotifies(t *testing.T) {
	f := newUploadFixture(10)
	f.uploader.err = errBoom
	f.stage(t, "a")

	_, err := f.svc.UploadCatalog(t.Context(), 1)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, f.pending.byStatus(models.PendingStatusError), 1)
	require.Len(t, f.notifier.subjects, 1)
	assert.Equal(t, "cat-ext-1", f.notifier.fields[0]["external_id"])
}

func TestCleanup(t *testing.T) {
	f := newUploadFixture(10)
	old := time.Now().Add(-time.Hour)
	f.pending.rows = []models.PendingUpload{
		{ID: 1, CatalogID: 1, ProductID: "a", Status: models.PendingStatusSuccess},
		{ID: 2, CatalogID: 1, ProductID: "b", Status: models.PendingStatusError},
		{ID: 3, CatalogID: 1, ProductID: "c", Status: models.PendingStatusProcessing, UpdatedAt: old},
		{ID: 4, CatalogID: 1, ProductID: "d", Status: models.PendingStatusProcessing, UpdatedAt: time.Now()},
	}

	res, err := f.svc.Cleanup(t.Context())
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Deleted: 1, Reset: 1, Reclaimed: 1}, res)
	assert.Len(t, f.pending.byStatus(models.PendingStatusPending), 2)
	assert.Len(t, f.pending.byStatus(models.PendingStatusProcessing), 1)
}

func TestUploadAllAndKick(t *testing.T) {
	f := newUploadFixture(10)
	f.stage(t, "a")

	f.svc.Kick(1)
	select {
	case id := <-f.svc.Kicks():
		assert.Equal(t, 1, id)
	default:
		t.Fatal("kick not delivered")
	}

	require.NoError(t, f.svc.UploadAll(t.Context()))
	assert.Len(t, f.pending.byStatus(models.PendingStatusSuccess), 1)
}
