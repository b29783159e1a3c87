package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/GTDGit/catalog_sync/internal/cache"
)

// RedisQueue is a persistent list-backed queue. Every put and get refreshes the
// key TTL so an abandoned queue eventually disappears.
type RedisQueue struct {
	redis *cache.RedisClient
	key   string
	ttl   time.Duration
}

// NewRedis creates a RedisQueue stored under key.
func NewRedis(redis *cache.RedisClient, key string, ttl time.Duration) *RedisQueue {
	return &RedisQueue{redis: redis, key: key, ttl: ttl}
}

// Key returns the backing Redis key.
func (q *RedisQueue) Key() string { return q.key }

func (q *RedisQueue) Put(ctx context.Context, item string) error {
	return q.PutMany(ctx, []string{item})
}

func (q *RedisQueue) PutMany(ctx context.Context, items []string) error {
	if len(items) == 0 {
		return nil
	}
	if err := q.redis.Push(ctx, q.key, items...); err != nil {
		return fmt.Errorf("queue %s: push: %w", q.key, err)
	}
	return q.touch(ctx)
}

func (q *RedisQueue) Get(ctx context.Context) (string, bool, error) {
	item, ok, err := q.redis.Pop(ctx, q.key)
	if err != nil {
		return "", false, fmt.Errorf("queue %s: pop: %w", q.key, err)
	}
	if !ok {
		return "", false, nil
	}
	return item, true, q.touch(ctx)
}

func (q *RedisQueue) Size(ctx context.Context) (int, error) {
	n, err := q.redis.Len(ctx, q.key)
	return int(n), err
}

func (q *RedisQueue) Clear(ctx context.Context) error {
	return q.redis.Delete(ctx, q.key)
}

func (q *RedisQueue) GetAll(ctx context.Context) ([]string, error) {
	return q.redis.Range(ctx, q.key)
}

// MoveOne atomically moves the head of q to the tail of dst, so the item is
// always in exactly one of the two lists.
func (q *RedisQueue) MoveOne(ctx context.Context, dst *RedisQueue) (string, bool, error) {
	item, ok, err := q.redis.Move(ctx, q.key, dst.key)
	if err != nil {
		return "", false, fmt.Errorf("queue %s: move to %s: %w", q.key, dst.key, err)
	}
	if !ok {
		return "", false, nil
	}
	if err := q.touch(ctx); err != nil {
		return item, true, err
	}
	return item, true, dst.touch(ctx)
}

// MoveAll drains q into dst one MoveOne at a time and returns the count moved.
func (q *RedisQueue) MoveAll(ctx context.Context, dst *RedisQueue) (int, error) {
	moved := 0
	for {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		_, ok, err := q.MoveOne(ctx, dst)
		if err != nil {
			return moved, err
		}
		if !ok {
			return moved, nil
		}
		moved++
	}
}

func (q *RedisQueue) touch(ctx context.Context) error {
	if q.ttl <= 0 {
		return nil
	}
	return q.redis.Expire(ctx, q.key, q.ttl)
}

// Keys returns the main and staging queue keys of a catalog scope.
func Keys(catalogID int, scope string) (main, staging string) {
	base := fmt.Sprintf("sync:queue:%d:%s", catalogID, scope)
	return base, base + ":staging"
}
