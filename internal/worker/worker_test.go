package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GTDGit/catalog_sync/internal/service"
)

type countingSyncer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSyncer) SyncAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingSyncer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSyncWorkerRunsImmediately(t *testing.T) {
	s := &countingSyncer{}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		NewSyncWorker(s, time.Hour).Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

type fakeUploader struct {
	kicks    chan int
	mu       sync.Mutex
	catalogs []int
	sweeps   int
}

func (f *fakeUploader) UploadAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return nil
}

func (f *fakeUploader) UploadCatalog(_ context.Context, id int) (service.UploadSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogs = append(f.catalogs, id)
	return service.UploadSummary{Batches: 1, Uploaded: 3}, nil
}

func (f *fakeUploader) Kicks() <-chan int { return f.kicks }

func TestUploadWorkerHandlesKicksAndSweeps(t *testing.T) {
	up := &fakeUploader{kicks: make(chan int, 1)}
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go NewUploadWorker(up, 20*time.Millisecond).Start(ctx)

	up.kicks <- 7
	assert.Eventually(t, func() bool {
		up.mu.Lock()
		defer up.mu.Unlock()
		return len(up.catalogs) == 1 && up.catalogs[0] == 7 && up.sweeps > 0
	}, time.Second, 5*time.Millisecond)
}

type fakeCleaner struct {
	calls chan struct{}
}

func (f *fakeCleaner) Cleanup(context.Context) (service.CleanupResult, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return service.CleanupResult{Deleted: 2}, nil
}

func TestCleanupWorkerTicks(t *testing.T) {
	c := &fakeCleaner{calls: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go NewCleanupWorker(c, 10*time.Millisecond).Start(ctx)

	select {
	case <-c.calls:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}
}

func TestZeroIntervalDisablesScheduledWork(t *testing.T) {
	s := &countingSyncer{}
	done := make(chan struct{})
	go func() {
		NewSyncWorker(s, 0).Start(t.Context())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sync worker did not return")
	}
	assert.Zero(t, s.count())

	tick, stop := every(0)
	stop()
	assert.Nil(t, tick)
}
