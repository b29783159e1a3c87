package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/GTDGit/catalog_sync/internal/metrics"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/queue"
)

// ItemProcessor turns one queue item into zero or more records.
type ItemProcessor interface {
	Process(ctx context.Context, run *Run, item string) ([]models.ProductRecord, error)
}

// Counts aggregates the outcome of a run.
type Counts struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Sent    int `json:"sent"`
}

type counter struct {
	mu sync.Mutex
	c  Counts
}

func (c *counter) add(valid, invalid, sent int) {
	c.mu.Lock()
	c.c.Valid += valid
	c.c.Invalid += invalid
	c.c.Sent += sent
	c.mu.Unlock()
}

func (c *counter) snapshot() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c
}

// BatchOrchestrator drains a queue with a bounded pool of workers.
type BatchOrchestrator struct {
	processor ItemProcessor
	workers   int
}

// NewBatchOrchestrator constructs a BatchOrchestrator. workers below 1 means 1.
func NewBatchOrchestrator(processor ItemProcessor, workers int) *BatchOrchestrator {
	if workers < 1 {
		workers = 1
	}
	return &BatchOrchestrator{processor: processor, workers: workers}
}

// Run processes every item of q. Claimed items are recorded in the staging
// queue when q has one. drained is true only when the final flush persisted
// everything that was left in the saver. A non-nil error means the queue
// itself failed; per-item failures are only counted.
func (o *BatchOrchestrator) Run(ctx context.Context, run *Run, q *queue.Manager, saver *Saver) (counts Counts, drained bool, err error) {
	var cnt counter
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < o.workers; i++ {
		worker := i
		g.Go(func() error {
			metrics.ActiveWorkers.Inc()
			defer metrics.ActiveWorkers.Dec()

			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				item, ok, err := q.Claim(gctx)
				if err != nil {
					return fmt.Errorf("worker %d: %w", worker, err)
				}
				if !ok {
					return nil
				}
				o.handle(gctx, run, item, saver, &cnt)
			}
		})
	}
	err = g.Wait()

	// records already buffered are persisted even when the run was canceled
	sent, flushErr := saver.Flush(context.WithoutCancel(ctx))
	cnt.add(0, 0, sent)
	counts = cnt.snapshot()

	log.Info().
		Int("catalog_id", run.Catalog.ID).
		Str("mode", string(run.Mode)).
		Int("valid", counts.Valid).
		Int("invalid", counts.Invalid).
		Int("sent", counts.Sent).
		Msg("Batch run finished")

	return counts, flushErr == nil && saver.Buffered() == 0, err
}

func (o *BatchOrchestrator) handle(ctx context.Context, run *Run, item string, saver *Saver, cnt *counter) {
	mode := string(run.Mode)
	defer func() {
		if r := recover(); r != nil {
			metrics.ItemsProcessed.WithLabelValues(mode, metrics.ResultError).Inc()
			log.Error().Interface("panic", r).Str("item", item).Int("catalog_id", run.Catalog.ID).Msg("Panic while processing item")
			cnt.add(0, 1, 0)
		}
	}()

	records, err := o.processor.Process(ctx, run, item)
	if err != nil {
		metrics.ItemsProcessed.WithLabelValues(mode, metrics.ResultError).Inc()
		log.Warn().Err(err).Str("item", item).Int("catalog_id", run.Catalog.ID).Msg("Failed to process item")
		cnt.add(0, 1, 0)
		return
	}
	if len(records) == 0 {
		metrics.ItemsProcessed.WithLabelValues(mode, metrics.ResultInvalid).Inc()
		cnt.add(0, 1, 0)
		return
	}

	metrics.ItemsProcessed.WithLabelValues(mode, metrics.ResultValid).Inc()
	saver.Add(records...)
	sent := 0
	if saver.Full() {
		// flush failures are logged by the saver; the batch is gone either way
		sent, _ = saver.Flush(ctx)
	}
	cnt.add(1, 0, sent)
}
