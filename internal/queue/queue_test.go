package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_sync/internal/cache"
)

func newRedisQueues(t *testing.T, ttl time.Duration) (*RedisQueue, *RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rc := cache.Wrap(client)
	mainKey, stagingKey := Keys(3, "all")
	return NewRedis(rc, mainKey, ttl), NewRedis(rc, stagingKey, ttl), mr
}

func drain(t *testing.T, q Queue) []string {
	t.Helper()
	var out []string
	for {
		item, ok, err := q.Get(t.Context())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

func TestSplitSellerSKU(t *testing.T) {
	seller, sku, ok := SplitSellerSKU(SellerSKU("s1", "123"))
	require.True(t, ok)
	assert.Equal(t, "s1", seller)
	assert.Equal(t, "123", sku)

	for _, bad := range []string{"123", "#123", "s1#", ""} {
		_, _, ok := SplitSellerSKU(bad)
		assert.False(t, ok, bad)
	}
}

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemory("a")
	ctx := t.Context()
	require.NoError(t, q.Put(ctx, "b"))
	require.NoError(t, q.PutMany(ctx, []string{"c", "d"}))

	n, _ := q.Size(ctx)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"a", "b", "c", "d"}, drain(t, q))

	require.NoError(t, q.Put(ctx, "e"))
	require.NoError(t, q.Clear(ctx))
	n, _ = q.Size(ctx)
	assert.Zero(t, n)
}

func TestRedisQueueRefreshesTTL(t *testing.T) {
	q, _, mr := newRedisQueues(t, time.Hour)
	ctx := t.Context()

	require.NoError(t, q.PutMany(ctx, []string{"1", "2"}))
	assert.Equal(t, time.Hour, mr.TTL(q.Key()))

	mr.FastForward(30 * time.Minute)
	item, ok, err := q.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", item)
	assert.Equal(t, time.Hour, mr.TTL(q.Key()))

	n, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecoverReinsertsStagedItemsOnce(t *testing.T) {
	mainQ, staging, _ := newRedisQueues(t, time.Hour)
	ctx := t.Context()
	require.NoError(t, mainQ.Put(ctx, "3"))
	require.NoError(t, staging.PutMany(ctx, []string{"1", "2"}))

	m := NewManager(mainQ, staging)
	n, err := m.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := staging.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, left)

	n, err = m.Recover(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ElementsMatch(t, []string{"1", "2", "3"}, drain(t, mainQ))
}

func TestRedisClaimStagesAtomically(t *testing.T) {
	mainQ, staging, mr := newRedisQueues(t, time.Hour)
	ctx := t.Context()
	require.NoError(t, mainQ.PutMany(ctx, []string{"1", "2"}))

	m := NewManager(mainQ, staging)
	item, ok, err := m.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", item)

	staged, err := staging.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, staged)
	assert.Equal(t, time.Hour, mr.TTL(staging.Key()))

	rest, err := mainQ.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, rest)
}

func TestRecoverAfterPartialMoveKeepsItemsUnique(t *testing.T) {
	mainQ, staging, _ := newRedisQueues(t, time.Hour)
	ctx := t.Context()
	require.NoError(t, staging.PutMany(ctx, []string{"1", "2", "3"}))

	// a recovery interrupted after its first move
	_, ok, err := staging.MoveOne(ctx, mainQ)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := NewManager(mainQ, staging).Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"1", "2", "3"}, drain(t, mainQ))
}

func TestPreparePopulatesEmptyQueue(t *testing.T) {
	m := NewManager(NewMemory(), NewMemory())
	calls := 0
	list := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	n, err := m.Prepare(t.Context(), list)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, calls)
}

func TestPrepareSkipsListingWhenRecovered(t *testing.T) {
	staging := NewMemory("x")
	m := NewManager(NewMemory(), staging)

	n, err := m.Prepare(t.Context(), func(context.Context) ([]string, error) {
		t.Fatal("listing must not run when staged work exists")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrepareListError(t *testing.T) {
	m := NewManager(NewMemory(), nil)
	_, err := m.Prepare(t.Context(), func(context.Context) ([]string, error) {
		return nil, errors.New("source down")
	})
	assert.ErrorContains(t, err, "source down")
}

func TestClaimStagesItem(t *testing.T) {
	staging := NewMemory()
	m := NewManager(NewMemory("a", "b"), staging)
	ctx := t.Context()

	item, ok, err := m.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", item)

	staged, _ := staging.GetAll(ctx)
	assert.Equal(t, []string{"a"}, staged)

	require.NoError(t, m.Finish(ctx))
	staged, _ = staging.GetAll(ctx)
	assert.Empty(t, staged)
}

func TestClaimEmpty(t *testing.T) {
	m := NewManager(NewMemory(), nil)
	_, ok, err := m.Claim(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)
}
