package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Lister produces the full set of work items for a fresh run.
type Lister func(ctx context.Context) ([]string, error)

// Manager pairs a main queue with its staging queue.
type Manager struct {
	Main    Queue
	Staging Staging
}

// NewManager creates a Manager. staging may be nil for non-resumable queues.
func NewManager(main Queue, staging Staging) *Manager {
	return &Manager{Main: main, Staging: staging}
}

// Recover moves every staged item back into the main queue and empties the
// staging queue. It returns the number of items recovered. Between two Redis
// queues each item moves atomically, so a crash mid-recovery neither loses nor
// duplicates items. Other backends copy then clear.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	if m.Staging == nil {
		return 0, nil
	}
	if staging, main, ok := m.redisPair(); ok {
		n, err := staging.MoveAll(ctx, main)
		if err != nil {
			return n, fmt.Errorf("failed to reinsert staged items: %w", err)
		}
		return n, nil
	}
	items, err := m.Staging.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read staging queue: %w", err)
	}
	if len(items) > 0 {
		if err := m.Main.PutMany(ctx, items); err != nil {
			return 0, fmt.Errorf("failed to reinsert staged items: %w", err)
		}
	}
	if err := m.Staging.Clear(ctx); err != nil {
		return len(items), fmt.Errorf("failed to clear staging queue: %w", err)
	}
	return len(items), nil
}

// Prepare recovers staged work and, when the main queue is still empty,
// repopulates it from list. It returns the resulting queue size.
func (m *Manager) Prepare(ctx context.Context, list Lister) (int, error) {
	recovered, err := m.Recover(ctx)
	if err != nil {
		return 0, err
	}
	if recovered > 0 {
		log.Info().Int("recovered", recovered).Msg("Recovered staged queue items")
	}

	size, err := m.Main.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read queue size: %w", err)
	}
	if size > 0 || list == nil {
		return size, nil
	}

	items, err := list(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list items: %w", err)
	}
	if err := m.Main.PutMany(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to populate queue: %w", err)
	}
	return len(items), nil
}

// Claim pops the next item and records it in the staging queue.
func (m *Manager) Claim(ctx context.Context) (string, bool, error) {
	if staging, main, ok := m.redisPair(); ok {
		return main.MoveOne(ctx, staging)
	}
	item, ok, err := m.Main.Get(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	if m.Staging != nil {
		if err := m.Staging.Put(ctx, item); err != nil {
			// hand the item back
			_ = m.Main.Put(ctx, item)
			return "", false, fmt.Errorf("failed to stage item: %w", err)
		}
	}
	return item, true, nil
}

// Finish clears the staging queue after a run drained completely.
func (m *Manager) Finish(ctx context.Context) error {
	if m.Staging == nil {
		return nil
	}
	return m.Staging.Clear(ctx)
}

func (m *Manager) redisPair() (staging, main *RedisQueue, ok bool) {
	staging, ok = m.Staging.(*RedisQueue)
	if !ok {
		return nil, nil, false
	}
	main, ok = m.Main.(*RedisQueue)
	return staging, main, ok
}
