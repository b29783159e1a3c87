package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CatalogSyncer runs a full sync of every active catalog.
type CatalogSyncer interface {
	SyncAll(ctx context.Context) error
}

// SyncWorker resyncs every active catalog on startup and then every interval.
// A zero interval disables scheduled syncs; manual triggers still work.
type SyncWorker struct {
	syncer   CatalogSyncer
	interval time.Duration
}

func NewSyncWorker(syncer CatalogSyncer, interval time.Duration) *SyncWorker {
	return &SyncWorker{syncer: syncer, interval: interval}
}

// Start blocks until ctx is canceled.
func (w *SyncWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Scheduled catalog sync disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting sync worker")

	w.run(ctx)

	tick, stop := every(w.interval)
	defer stop()
	for {
		select {
		case <-tick:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Sync worker stopped")
			return
		}
	}
}

func (w *SyncWorker) run(ctx context.Context) {
	start := time.Now()
	if err := w.syncer.SyncAll(ctx); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled catalog sync failed")
		return
	}
	log.Info().
		Dur("duration", time.Since(start)).
		Time("next_run", time.Now().Add(w.interval)).
		Msg("Scheduled catalog sync completed")
}
