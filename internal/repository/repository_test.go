package repository

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_sync/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func TestCatalogGetByID(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	cols := []string{"id", "external_id", "app_id", "category", "owner_id", "source_domain", "sales_channel",
		"sellers", "seller_attribute", "sync_mode", "rules", "access_token", "is_active", "created_at", "updated_at"}

	mock.ExpectPrepare("FROM catalogs WHERE id").
		ExpectQuery().
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			7, "cat-7", "app", "grocery", "owner", "shop.example.com", "1",
			"{s1,s2}", "", "seller_sku", `[{"name":"weight_price"}]`, "tok", true, now, now,
		))

	c, err := NewCatalogRepository(db).GetByID(t.Context(), 7)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "cat-7", c.ExternalID)
	assert.Equal(t, pq.StringArray{"s1", "s2"}, c.Sellers)
	assert.Equal(t, models.SyncModeSellerSKU, c.SyncMode)
	require.Len(t, c.Rules, 1)
	assert.Equal(t, "weight_price", c.Rules[0].Name)
}

func TestCatalogGetByIDMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPrepare("FROM catalogs WHERE id").
		ExpectQuery().
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, err := NewCatalogRepository(db).GetByID(t.Context(), 9)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestVerdictCreateIgnoresConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (catalog_id, sku_id) DO NOTHING")).
		WithArgs(1, "42", false, "tobacco", "Cigarrillos").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewVerdictRepository(db).Create(t.Context(), &models.ValidationVerdict{
		CatalogID: 1, SKUID: "42", Classification: "tobacco", Description: "Cigarrillos",
	})
	require.NoError(t, err)
}

func TestPendingBulkUpsert(t *testing.T) {
	db, mock := newMock(t)
	records := []models.PendingUpload{
		{CatalogID: 1, ProductID: "a", Payload: json.RawMessage(`{"id":"a"}`)},
		{CatalogID: 1, ProductID: "b", Payload: json.RawMessage(`{"id":"b"}`)},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM pending_uploads").
		WithArgs(1, pq.Array([]string{"a", "b"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO pending_uploads").
		WithArgs(1, "a", `{"id":"a"}`, "pending", 1, "b", `{"id":"b"}`, "pending").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := NewPendingRepository(db).BulkUpsert(t.Context(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPendingBulkUpsertRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM pending_uploads").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := NewPendingRepository(db).BulkUpsert(t.Context(), []models.PendingUpload{
		{CatalogID: 1, ProductID: "a", Payload: json.RawMessage(`{}`)},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPendingClaimLatest(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("DISTINCT ON \\(product_id\\)").
		WithArgs(3, 500).
		WillReturnRows(sqlmock.NewRows([]string{"id", "catalog_id", "product_id", "payload", "status", "created_at", "updated_at"}).
			AddRow(int64(10), 3, "a", []byte(`{"id":"a"}`), "processing", now, now).
			AddRow(int64(11), 3, "b", []byte(`{"id":"b"}`), "processing", now, now))
	mock.ExpectExec("DELETE FROM pending_uploads").
		WithArgs(3, pq.Array([]string{"a", "b"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := NewPendingRepository(db).ClaimLatest(t.Context(), 3, 500)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, models.PendingStatusProcessing, claimed[0].Status)
	assert.JSONEq(t, `{"id":"b"}`, string(claimed[1].Payload))
}

func TestPendingClaimLatestEmpty(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("DISTINCT ON").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := NewPendingRepository(db).ClaimLatest(t.Context(), 3, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestPendingReclaimStale(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Now().Add(-30 * time.Minute)
	mock.ExpectExec("WHERE status = 'processing' AND updated_at <").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewPendingRepository(db).ReclaimStale(t.Context(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestSyncRunFinish(t *testing.T) {
	db, mock := newMock(t)
	done := time.Now()
	run := &models.SyncRun{ID: "run-1", Status: models.SyncRunCompleted, Valid: 5, Invalid: 2, Sent: 5, FinishedAt: &done}

	mock.ExpectPrepare("UPDATE sync_runs").
		ExpectExec().
		WithArgs("run-1", models.SyncRunCompleted, 5, 2, 5, nil, &done).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewSyncRunRepository(db).Finish(t.Context(), run))
}

func TestUploadLogBulkCreateEmpty(t *testing.T) {
	db, _ := newMock(t)
	require.NoError(t, NewUploadLogRepository(db).BulkCreate(t.Context(), nil))
}

func TestAdminUserRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAdminUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
		WithArgs("ops@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "is_active", "last_login_at", "created_at", "updated_at"}).
			AddRow(3, "ops@example.com", "hash", "Ops", true, nil, now, now))
	u, err := repo.GetByEmail(t.Context(), "ops@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 3, u.ID)
	assert.Nil(t, u.LastLoginAt)

	mock.ExpectQuery("INSERT INTO admin_users").
		WithArgs("new@example.com", "hash", "bootstrap", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))
	created, err := repo.Create(t.Context(), &models.AdminUser{Email: "new@example.com", PasswordHash: "hash", Name: "bootstrap", IsActive: true})
	require.NoError(t, err)
	assert.False(t, created, "conflicting email returns no row")

	mock.ExpectExec("UPDATE admin_users SET last_login_at").
		WithArgs(3, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.TouchLogin(t.Context(), 3, now))
}
