package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/service"
)

// Uploader drains pending records to the destination catalog.
type Uploader interface {
	UploadAll(ctx context.Context) error
	UploadCatalog(ctx context.Context, catalogID int) (service.UploadSummary, error)
	Kicks() <-chan int
}

// UploadWorker uploads a catalog as soon as the saver kicks it, and sweeps
// every catalog with pending records on an interval. A zero interval leaves
// only kicks.
type UploadWorker struct {
	uploader Uploader
	interval time.Duration
}

// NewUploadWorker constructs an UploadWorker.
func NewUploadWorker(uploader Uploader, interval time.Duration) *UploadWorker {
	return &UploadWorker{
		uploader: uploader,
		interval: interval,
	}
}

// Start runs until ctx is canceled.
func (w *UploadWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting upload worker")

	sweep, stop := every(w.interval)
	defer stop()

	for {
		select {
		case id := <-w.uploader.Kicks():
			w.runCatalog(ctx, id)
		case <-sweep:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Upload worker stopped")
			return
		}
	}
}

func (w *UploadWorker) run(ctx context.Context) {
	if err := w.uploader.UploadAll(ctx); err != nil {
		log.Error().Err(err).Msg("Upload sweep failed")
	}
}

func (w *UploadWorker) runCatalog(ctx context.Context, catalogID int) {
	sum, err := w.uploader.UploadCatalog(ctx, catalogID)
	if err != nil {
		log.Error().Err(err).Int("catalog_id", catalogID).Msg("Upload failed")
		return
	}
	if sum.Batches > 0 {
		log.Info().
			Int("catalog_id", catalogID).
			Int("batches", sum.Batches).
			Int("uploaded", sum.Uploaded).
			Int("failed", sum.Failed).
			Msg("Catalog upload completed")
	}
}
