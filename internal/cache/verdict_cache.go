package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// VerdictEntry is the cached policy outcome of a SKU.
type VerdictEntry struct {
	Valid          bool      `json:"valid"`
	Classification string    `json:"classification,omitempty"`
	CachedAt       time.Time `json:"cachedAt"`
}

// VerdictCache is the ephemeral tier of SKU validation. A hit renews the TTL.
type VerdictCache interface {
	Get(ctx context.Context, catalogID int, skuID string) (*VerdictEntry, bool, error)
	Set(ctx context.Context, catalogID int, skuID string, entry VerdictEntry) error
}

func verdictKey(catalogID int, skuID string) string {
	return fmt.Sprintf("validation:%d:%s", catalogID, skuID)
}

// RedisVerdictCache stores verdicts as JSON strings with a sliding TTL.
type RedisVerdictCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewRedisVerdictCache creates a RedisVerdictCache.
func NewRedisVerdictCache(redis *RedisClient, ttl time.Duration) *RedisVerdictCache {
	return &RedisVerdictCache{redis: redis, ttl: ttl}
}

// Get returns the cached entry and refreshes its TTL.
func (c *RedisVerdictCache) Get(ctx context.Context, catalogID int, skuID string) (*VerdictEntry, bool, error) {
	key := verdictKey(catalogID, skuID)
	raw, err := c.redis.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry VerdictEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal verdict: %w", err)
	}
	if err := c.redis.Expire(ctx, key, c.ttl); err != nil {
		return nil, false, fmt.Errorf("failed to renew verdict ttl: %w", err)
	}
	return &entry, true, nil
}

// Set stores entry under the TTL.
func (c *RedisVerdictCache) Set(ctx context.Context, catalogID int, skuID string, entry VerdictEntry) error {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	return c.redis.Set(ctx, verdictKey(catalogID, skuID), string(data), c.ttl)
}

// MemoryVerdictCache is the in-process backend, used by single-node deployments and tests.
type MemoryVerdictCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// NewMemoryVerdictCache creates a MemoryVerdictCache.
func NewMemoryVerdictCache(ttl time.Duration) *MemoryVerdictCache {
	return &MemoryVerdictCache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *MemoryVerdictCache) Get(_ context.Context, catalogID int, skuID string) (*VerdictEntry, bool, error) {
	key := verdictKey(catalogID, skuID)
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(VerdictEntry)
	c.store.Set(key, entry, c.ttl)
	return &entry, true, nil
}

func (c *MemoryVerdictCache) Set(_ context.Context, catalogID int, skuID string, entry VerdictEntry) error {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	c.store.Set(verdictKey(catalogID, skuID), entry, c.ttl)
	return nil
}
