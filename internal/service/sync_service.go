package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/cache"
	"github.com/GTDGit/catalog_sync/internal/lock"
	"github.com/GTDGit/catalog_sync/internal/metrics"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/queue"
	"github.com/GTDGit/catalog_sync/internal/rules"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

// SyncRequest describes one sync run.
type SyncRequest struct {
	RunID     string
	CatalogID int
	// Sellers overrides the catalog seller list.
	Sellers []string
	// SKUs limits the run to the given items and uses a run-scoped queue.
	SKUs       []string
	UpdateMode bool
	// Mode overrides the catalog sync mode.
	Mode models.SyncMode
}

// SyncResult is the outcome of a run.
type SyncResult struct {
	RunID   string               `json:"runId"`
	Status  models.SyncRunStatus `json:"status"`
	Counts  Counts               `json:"counts"`
	Skipped bool                 `json:"skipped"`
}

// SyncOptions configures the SyncService.
type SyncOptions struct {
	Workers        int
	BatchSize      int
	DefaultMode    models.SyncMode
	DefaultRules   []string
	LockRenewEvery time.Duration
}

// QueueFactory returns the resumable queue pair of a catalog scope.
type QueueFactory func(catalogID int, scope string) *queue.Manager

// RedisQueues builds resumable queues on Redis lists.
func RedisQueues(redis *cache.RedisClient, ttl time.Duration) QueueFactory {
	return func(catalogID int, scope string) *queue.Manager {
		mainKey, stagingKey := queue.Keys(catalogID, scope)
		return queue.NewManager(queue.NewRedis(redis, mainKey, ttl), queue.NewRedis(redis, stagingKey, ttl))
	}
}

// SyncService runs the extraction pipeline for a catalog under a lock.
type SyncService struct {
	catalogs  CatalogStore
	runs      RunStore
	pending   PendingStore
	source    Source
	processor ItemProcessor
	registry  *rules.Registry
	locks     *lock.Manager
	queues    QueueFactory
	kick      func(catalogID int)
	events    RunEvents
	opts      SyncOptions

	wg sync.WaitGroup
}

// NewSyncService constructs a SyncService. kick may be nil.
func NewSyncService(
	catalogs CatalogStore,
	runs RunStore,
	pending PendingStore,
	source Source,
	processor ItemProcessor,
	registry *rules.Registry,
	locks *lock.Manager,
	queues QueueFactory,
	kick func(catalogID int),
	opts SyncOptions,
) *SyncService {
	if opts.DefaultMode == "" {
		opts.DefaultMode = models.SyncModeSingle
	}
	return &SyncService{
		catalogs:  catalogs,
		runs:      runs,
		pending:   pending,
		source:    source,
		processor: processor,
		registry:  registry,
		locks:     locks,
		queues:    queues,
		kick:      kick,
		events:    nopEvents{},
		opts:      opts,
	}
}

// SetEvents wires a live event sink for run progress.
func (s *SyncService) SetEvents(events RunEvents) {
	s.events = events
}

// Dispatch runs req in the background and returns its run id.
func (s *SyncService) Dispatch(ctx context.Context, req SyncRequest) string {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Sync(ctx, req); err != nil {
			log.Error().Err(err).Int("catalog_id", req.CatalogID).Str("run_id", req.RunID).Msg("Sync run failed")
		}
	}()
	return req.RunID
}

// Wait blocks until every dispatched run returns.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// SyncAll runs a full sync of every active catalog with a source binding.
func (s *SyncService) SyncAll(ctx context.Context) error {
	catalogs, err := s.catalogs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}
	for _, c := range catalogs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.Domain() == "" {
			continue
		}
		if _, err := s.Sync(ctx, SyncRequest{CatalogID: c.ID}); err != nil {
			log.Error().Err(err).Int("catalog_id", c.ID).Msg("Scheduled sync failed")
		}
	}
	return nil
}

// Sync executes one run. Lock contention is not an error: the result is
// marked skipped and no work is done.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	catalog, mode, chain, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	sellers := req.Sellers
	if len(sellers) == 0 {
		sellers = catalog.Sellers
	}
	scope := lock.Scope{CatalogID: catalog.ID, AppID: catalog.AppID, Sellers: sellers}

	started := time.Now()
	lk, ok, err := s.locks.Acquire(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.LockContention.Inc()
		log.Info().Int("catalog_id", catalog.ID).Str("lock", scope.Key()).Msg("Sync already running, skipping")
		s.recordSkipped(ctx, req.RunID, catalog.ID, mode)
		return &SyncResult{RunID: req.RunID, Status: models.SyncRunSkipped, Skipped: true}, nil
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("lock", lk.Key()).Msg("Failed to release sync lock")
		}
	}()

	keepCtx, stopKeep := context.WithCancel(ctx)
	defer stopKeep()
	go lk.KeepAlive(keepCtx, s.opts.LockRenewEvery)

	run := &models.SyncRun{
		ID:        req.RunID,
		CatalogID: catalog.ID,
		Mode:      mode,
		Status:    models.SyncRunRunning,
		StartedAt: started.UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record sync run")
	}
	s.events.RunStarted(run)

	log.Info().
		Str("run_id", run.ID).
		Int("catalog_id", catalog.ID).
		Str("mode", string(mode)).
		Int("sellers", len(sellers)).
		Int("skus", len(req.SKUs)).
		Bool("update_mode", req.UpdateMode).
		Msg("Sync run started")

	result, runErr := s.execute(ctx, catalog, chain, mode, sellers, scope, req)
	result.RunID = run.ID

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = result.Status
	run.Valid, run.Invalid, run.Sent = result.Counts.Valid, result.Counts.Invalid, result.Counts.Sent
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}
	if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to finish sync run")
	}
	metrics.RunDuration.WithLabelValues(string(run.Status)).Observe(time.Since(started).Seconds())
	s.events.RunFinished(run)

	return result, runErr
}

// Check reports whether req could start: the catalog exists, is active and
// bound to a source, and its mode and rules resolve.
func (s *SyncService) Check(ctx context.Context, req SyncRequest) error {
	_, _, _, err := s.resolve(ctx, req)
	return err
}

func (s *SyncService) resolve(ctx context.Context, req SyncRequest) (*models.Catalog, models.SyncMode, *rules.Chain, error) {
	catalog, err := s.catalogs.GetByID(ctx, req.CatalogID)
	if err != nil {
		return nil, "", nil, err
	}
	if catalog == nil {
		return nil, "", nil, utils.ErrCatalogNotFound
	}
	if !catalog.IsActive {
		return nil, "", nil, utils.ErrCatalogInactive
	}
	if catalog.Domain() == "" {
		return nil, "", nil, utils.ErrCatalogUnbound
	}

	mode := s.resolveMode(catalog, req)
	if !mode.Valid() {
		return nil, "", nil, fmt.Errorf("%w: %q", utils.ErrInvalidMode, mode)
	}
	chain, err := s.buildChain(catalog)
	if err != nil {
		return nil, "", nil, err
	}
	return catalog, mode, chain, nil
}

func (s *SyncService) execute(ctx context.Context, catalog *models.Catalog, chain *rules.Chain, mode models.SyncMode, sellers []string, scope lock.Scope, req SyncRequest) (*SyncResult, error) {
	failed := &SyncResult{Status: models.SyncRunFailed}

	if len(sellers) == 0 && catalog.SellerAttribute == "" {
		listed, err := s.listSellers(ctx, catalog)
		if err != nil {
			return failed, err
		}
		sellers = listed
	}

	var qm *queue.Manager
	if len(req.SKUs) > 0 {
		qm = queue.NewManager(queue.NewMemory(expandItems(req.SKUs, sellers, mode)...), nil)
	} else {
		qm = s.queues(catalog.ID, scope.SellerHash())
		size, err := qm.Prepare(ctx, func(ctx context.Context) ([]string, error) {
			ids, err := s.source.ListActiveSKUIDs(ctx, catalog.Domain(), catalog.SalesChannel)
			if err != nil {
				return nil, err
			}
			return expandItems(ids, sellers, mode), nil
		})
		if err != nil {
			return failed, fmt.Errorf("failed to prepare queue: %w", err)
		}
		log.Info().Int("catalog_id", catalog.ID).Int("queued", size).Msg("Queue prepared")
	}

	saver := NewSaver(s.pending, catalog.ID, s.opts.BatchSize, s.kick)
	orchestrator := NewBatchOrchestrator(s.processor, s.opts.Workers)
	run := &Run{Catalog: catalog, Chain: chain, Mode: mode, Sellers: sellers, UpdateMode: req.UpdateMode}

	counts, drained, err := orchestrator.Run(ctx, run, qm, saver)
	result := &SyncResult{Counts: counts}
	if err != nil {
		result.Status = models.SyncRunFailed
		return result, err
	}
	if err := qm.Finish(ctx); err != nil {
		log.Warn().Err(err).Int("catalog_id", catalog.ID).Msg("Failed to clear staging queue")
	}
	if drained {
		result.Status = models.SyncRunCompleted
	} else {
		result.Status = models.SyncRunPartial
	}
	return result, nil
}

func (s *SyncService) resolveMode(catalog *models.Catalog, req SyncRequest) models.SyncMode {
	switch {
	case req.Mode != "":
		return req.Mode
	case catalog.SyncMode != "":
		return catalog.SyncMode
	default:
		return s.opts.DefaultMode
	}
}

func (s *SyncService) buildChain(catalog *models.Catalog) (*rules.Chain, error) {
	var chain *rules.Chain
	var err error
	if len(catalog.Rules) > 0 {
		chain, err = s.registry.Build(catalog.Rules)
	} else {
		chain, err = s.registry.BuildNames(s.opts.DefaultRules)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidRules, err)
	}
	return chain, nil
}

func (s *SyncService) listSellers(ctx context.Context, catalog *models.Catalog) ([]string, error) {
	listed, err := s.source.ListActiveSellers(ctx, catalog.Domain(), catalog.SalesChannel)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	ids := make([]string, 0, len(listed))
	for _, seller := range listed {
		ids = append(ids, seller.ID)
	}
	if len(ids) == 0 {
		return nil, errors.New("source reports no active sellers")
	}
	return ids, nil
}

func (s *SyncService) recordSkipped(ctx context.Context, runID string, catalogID int, mode models.SyncMode) {
	now := time.Now().UTC()
	run := &models.SyncRun{
		ID:         runID,
		CatalogID:  catalogID,
		Mode:       mode,
		Status:     models.SyncRunSkipped,
		StartedAt:  now,
		FinishedAt: &now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Failed to record skipped run")
	}
	s.events.RunFinished(run)
}

// Runs lists recent runs of a catalog.
func (s *SyncService) Runs(ctx context.Context, catalogID, limit int) ([]models.SyncRun, error) {
	return s.runs.ListByCatalog(ctx, catalogID, limit)
}

// expandItems builds queue items. In seller_sku mode every SKU is paired with
// every seller unless it already carries one.
func expandItems(skus, sellers []string, mode models.SyncMode) []string {
	if mode != models.SyncModeSellerSKU {
		return skus
	}
	out := make([]string, 0, len(skus)*max(len(sellers), 1))
	for _, sku := range skus {
		if strings.Contains(sku, queue.SellerSKUSeparator) {
			out = append(out, sku)
			continue
		}
		for _, seller := range sellers {
			out = append(out, queue.SellerSKU(seller, sku))
		}
	}
	return out
}
