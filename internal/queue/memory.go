package queue

import (
	"context"
	"sync"
)

// MemoryQueue is a run-scoped in-process queue. It does not survive restarts.
type MemoryQueue struct {
	mu    sync.Mutex
	items []string
}

// NewMemory creates a MemoryQueue seeded with items.
func NewMemory(items ...string) *MemoryQueue {
	return &MemoryQueue{items: append([]string(nil), items...)}
}

func (q *MemoryQueue) Put(_ context.Context, item string) error {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) PutMany(_ context.Context, items []string) error {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Get(_ context.Context) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true, nil
}

func (q *MemoryQueue) Size(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

func (q *MemoryQueue) Clear(_ context.Context) error {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) GetAll(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.items...), nil
}
