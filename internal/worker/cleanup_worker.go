package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/service"
)

// Cleaner maintains the pending upload table.
type Cleaner interface {
	Cleanup(ctx context.Context) (service.CleanupResult, error)
}

// CleanupWorker removes delivered records and re-queues failed or stuck ones.
type CleanupWorker struct {
	cleaner  Cleaner
	interval time.Duration
}

func NewCleanupWorker(cleaner Cleaner, interval time.Duration) *CleanupWorker {
	return &CleanupWorker{cleaner: cleaner, interval: interval}
}

// Start begins the periodic cleanup loop until context is canceled.
func (w *CleanupWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Pending upload cleanup disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting cleanup worker")

	tick, stop := every(w.interval)
	defer stop()

	for {
		select {
		case <-tick:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Cleanup worker stopped")
			return
		}
	}
}

func (w *CleanupWorker) run(ctx context.Context) {
	res, err := w.cleaner.Cleanup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Pending upload cleanup failed")
		return
	}
	if res.Deleted+res.Reset+res.Reclaimed > 0 {
		log.Info().
			Int64("deleted", res.Deleted).
			Int64("reset", res.Reset).
			Int64("reclaimed", res.Reclaimed).
			Msg("Pending upload cleanup completed")
	}
}
