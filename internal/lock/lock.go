// Package lock provides TTL-bound mutual exclusion for sync runs.
package lock

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/cache"
)

// ErrNotHeld is returned when the lock expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// Store is the key-value surface the manager needs.
type Store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
	ExpireIfEquals(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Scope identifies what a sync run covers.
type Scope struct {
	CatalogID int
	AppID     string
	Sellers   []string
}

// Key returns the lock key. Seller order does not matter.
func (s Scope) Key() string {
	return fmt.Sprintf("sync:lock:%d:%s:%s", s.CatalogID, s.AppID, s.SellerHash())
}

// SellerHash returns a short stable digest of the seller set, or "all".
func (s Scope) SellerHash() string {
	if len(s.Sellers) == 0 {
		return "all"
	}
	sellers := append([]string(nil), s.Sellers...)
	sort.Strings(sellers)
	sum := sha1.Sum([]byte(strings.Join(sellers, ",")))
	return hex.EncodeToString(sum[:])[:12]
}

// Info is the value stored under a lock key.
type Info struct {
	Token     string    `json:"token"`
	CatalogID int       `json:"catalogId"`
	AppID     string    `json:"appId"`
	Sellers   []string  `json:"sellers,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// Manager hands out locks backed by Store.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager creates a Manager whose locks live for ttl unless extended.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// Inspect returns the holder of scope's lock, if any.
func (m *Manager) Inspect(ctx context.Context, scope Scope) (*Info, bool, error) {
	raw, err := m.store.Get(ctx, scope.Key())
	if errors.Is(err, cache.ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var info Info
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, false, fmt.Errorf("failed to decode lock %s: %w", scope.Key(), err)
	}
	return &info, true, nil
}

// Lock is a held lock.
type Lock struct {
	m     *Manager
	key   string
	value string
}

// Acquire takes the lock for scope. ok is false when another run holds it.
func (m *Manager) Acquire(ctx context.Context, scope Scope) (*Lock, bool, error) {
	value, err := json.Marshal(Info{
		Token:     uuid.NewString(),
		CatalogID: scope.CatalogID,
		AppID:     scope.AppID,
		Sellers:   scope.Sellers,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, false, err
	}

	key := scope.Key()
	ok, err := m.store.SetNX(ctx, key, string(value), m.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{m: m, key: key, value: string(value)}, true, nil
}

// Key returns the lock key.
func (l *Lock) Key() string { return l.key }

// Extend renews the TTL.
func (l *Lock) Extend(ctx context.Context) error {
	ok, err := l.m.store.ExpireIfEquals(ctx, l.key, l.value, l.m.ttl)
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", l.key, err)
	}
	if !ok {
		return ErrNotHeld
	}
	return nil
}

// Release deletes the lock if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	ok, err := l.m.store.DeleteIfEquals(ctx, l.key, l.value)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if !ok {
		return ErrNotHeld
	}
	return nil
}

// KeepAlive extends the lock every interval until ctx is done or the lock is lost.
func (l *Lock) KeepAlive(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Extend(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Str("lock", l.key).Msg("Failed to extend sync lock")
				if errors.Is(err, ErrNotHeld) {
					return
				}
			}
		}
	}
}
