package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/pkg/apierr"
	"github.com/GTDGit/catalog_sync/pkg/classifier"
	"github.com/GTDGit/catalog_sync/pkg/metacatalog"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

type fakeSource struct {
	mu           sync.Mutex
	details      map[string]*vtex.SKUDetails
	offers       map[string]map[string]vtex.Availability // sku -> seller -> offer
	sellers      []vtex.Seller
	specs        map[string][]vtex.Specification // product id -> fields
	skuIDs       []string
	detailCalls  map[string]int
	listSKUCalls int
	simulateErr  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		details:     map[string]*vtex.SKUDetails{},
		offers:      map[string]map[string]vtex.Availability{},
		detailCalls: map[string]int{},
	}
}

func (f *fakeSource) addSKU(d *vtex.SKUDetails, offers ...vtex.Availability) {
	id := strconv.Itoa(d.ID)
	f.details[id] = d
	f.skuIDs = append(f.skuIDs, id)
	m := map[string]vtex.Availability{}
	for _, o := range offers {
		o.SKUID = id
		m[o.SellerID] = o
	}
	f.offers[id] = m
}

func (f *fakeSource) ListActiveSellers(context.Context, string, string) ([]vtex.Seller, error) {
	return f.sellers, nil
}

func (f *fakeSource) ListActiveSKUIDs(context.Context, string, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSKUCalls++
	return append([]string(nil), f.skuIDs...), nil
}

func (f *fakeSource) GetProductDetails(_ context.Context, skuID, _ string) (*vtex.SKUDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls[skuID]++
	d, ok := f.details[skuID]
	if !ok {
		return nil, &apierr.Error{Service: "vtex", Status: 404, Class: apierr.ClassNotFound}
	}
	cp := *d
	return &cp, nil
}

func (f *fakeSource) GetProductSpecification(_ context.Context, productID, _ string) ([]vtex.Specification, error) {
	return f.specs[productID], nil
}

func (f *fakeSource) SimulateSingleSeller(_ context.Context, skuID, sellerID, _, _ string) (*vtex.Availability, error) {
	if f.simulateErr != nil {
		return nil, f.simulateErr
	}
	o, ok := f.offers[skuID][sellerID]
	if !ok {
		return &vtex.Availability{SKUID: skuID, SellerID: sellerID}, nil
	}
	return &o, nil
}

func (f *fakeSource) SimulateMultiSeller(_ context.Context, skuID string, sellers []string, _, _ string) (map[string]vtex.Availability, error) {
	if f.simulateErr != nil {
		return nil, f.simulateErr
	}
	out := map[string]vtex.Availability{}
	for _, s := range sellers {
		o, ok := f.offers[skuID][s]
		if !ok {
			o = vtex.Availability{SKUID: skuID, SellerID: s}
		}
		out[s] = o
	}
	return out, nil
}

func (f *fakeSource) calls(skuID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[skuID]
}

type fakeClassifier struct {
	mu     sync.Mutex
	result map[string]classifier.Result // keyed by input prefix match
	def    classifier.Result
	err    error
	calls  int
	inputs []string
}

func (f *fakeClassifier) ValidatePolicy(_ context.Context, description string) (*classifier.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, description)
	if f.err != nil {
		return nil, f.err
	}
	for k, r := range f.result {
		if len(description) >= len(k) && description[:len(k)] == k {
			r := r
			return &r, nil
		}
	}
	r := f.def
	return &r, nil
}

type fakeVerdicts struct {
	mu    sync.Mutex
	items map[string]models.ValidationVerdict
	gets  int
}

func newFakeVerdicts() *fakeVerdicts {
	return &fakeVerdicts{items: map[string]models.ValidationVerdict{}}
}

func (f *fakeVerdicts) key(catalogID int, skuID string) string { return strconv.Itoa(catalogID) + ":" + skuID }

func (f *fakeVerdicts) Get(_ context.Context, catalogID int, skuID string) (*models.ValidationVerdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.items[f.key(catalogID, skuID)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeVerdicts) Create(_ context.Context, v *models.ValidationVerdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[f.key(v.CatalogID, v.SKUID)] = *v
	return nil
}

type fakePending struct {
	mu        sync.Mutex
	rows      []models.PendingUpload
	nextID    int64
	upsertErr error
	upserts   int
}

func (f *fakePending) BulkUpsert(_ context.Context, records []models.PendingUpload) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	now := time.Now()
	for _, r := range records {
		replaced := false
		for i := range f.rows {
			if f.rows[i].CatalogID == r.CatalogID && f.rows[i].ProductID == r.ProductID && f.rows[i].Status == models.PendingStatusPending {
				f.rows[i].Payload = r.Payload
				f.rows[i].UpdatedAt = now
				replaced = true
			}
		}
		if replaced {
			continue
		}
		f.nextID++
		r.ID = f.nextID
		r.Status = models.PendingStatusPending
		r.CreatedAt, r.UpdatedAt = now, now
		f.rows = append(f.rows, r)
	}
	return len(records), nil
}

func (f *fakePending) ClaimLatest(_ context.Context, catalogID, limit int) ([]models.PendingUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := map[string]int{}
	for i, r := range f.rows {
		if r.CatalogID != catalogID || r.Status != models.PendingStatusPending {
			continue
		}
		j, ok := latest[r.ProductID]
		if !ok || r.UpdatedAt.After(f.rows[j].UpdatedAt) || (r.UpdatedAt.Equal(f.rows[j].UpdatedAt) && r.ID > f.rows[j].ID) {
			latest[r.ProductID] = i
		}
	}
	idx := make([]int, 0, len(latest))
	for _, i := range latest {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	if len(idx) > limit {
		idx = idx[:limit]
	}
	var out []models.PendingUpload
	claimed := map[string]bool{}
	for _, i := range idx {
		f.rows[i].Status = models.PendingStatusProcessing
		out = append(out, f.rows[i])
		claimed[f.rows[i].ProductID] = true
	}
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.Status == models.PendingStatusPending && r.CatalogID == catalogID && claimed[r.ProductID] {
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return out, nil
}

func (f *fakePending) MarkStatus(_ context.Context, ids []int64, status models.PendingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := map[int64]bool{}
	for _, id := range ids {
		set[id] = true
	}
	for i := range f.rows {
		if set[f.rows[i].ID] {
			f.rows[i].Status = status
			f.rows[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

func (f *fakePending) CatalogsWithPending(context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, r := range f.rows {
		if r.Status == models.PendingStatusPending && !seen[r.CatalogID] {
			seen[r.CatalogID] = true
			out = append(out, r.CatalogID)
		}
	}
	return out, nil
}

func (f *fakePending) DeleteByStatus(_ context.Context, status models.PendingStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.Status == status {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

func (f *fakePending) ResetStatus(_ context.Context, from, to models.PendingStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.rows {
		if f.rows[i].Status == from {
			f.rows[i].Status = to
			n++
		}
	}
	return n, nil
}

func (f *fakePending) ReclaimStale(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.rows {
		if f.rows[i].Status == models.PendingStatusProcessing && f.rows[i].UpdatedAt.Before(olderThan) {
			f.rows[i].Status = models.PendingStatusPending
			n++
		}
	}
	return n, nil
}

func (f *fakePending) byStatus(status models.PendingStatus) []models.PendingUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PendingUpload
	for _, r := range f.rows {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type fakeCatalogs struct {
	items map[int]*models.Catalog
}

func (f *fakeCatalogs) GetByID(_ context.Context, id int) (*models.Catalog, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCatalogs) GetByExternalID(_ context.Context, appID, externalID string) (*models.Catalog, error) {
	for _, c := range f.items {
		if c.AppID == appID && c.ExternalID == externalID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogs) ListActive(context.Context) ([]models.Catalog, error) {
	var out []models.Catalog
	for _, c := range f.items {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]models.SyncRun
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[string]models.SyncRun{}} }

func (f *fakeRuns) Create(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	return nil
}

func (f *fakeRuns) Finish(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	return nil
}

func (f *fakeRuns) ListByCatalog(_ context.Context, catalogID, _ int) ([]models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SyncRun
	for _, r := range f.runs {
		if r.CatalogID == catalogID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuns) get(id string) models.SyncRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[id]
}

type fakeUploader struct {
	mu       sync.Mutex
	requests []metacatalog.BatchRequest
	handles  []string
	err      error
}

func (f *fakeUploader) BatchUpload(_ context.Context, _, _ string, req metacatalog.BatchRequest) (*metacatalog.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &metacatalog.BatchResponse{Handles: f.handles}, nil
}

type fakeLogs struct {
	mu   sync.Mutex
	logs []models.UploadLog
}

func (f *fakeLogs) BulkCreate(_ context.Context, logs []models.UploadLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, logs...)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	fields   []map[string]any
}

func (f *fakeNotifier) Notify(_ context.Context, subject string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.fields = append(f.fields, fields)
	return nil
}

var errBoom = errors.New("boom")

