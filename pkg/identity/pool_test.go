package identity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "xscraper/pkg/errors"
)

func newTestPool(t *testing.T, size, concurrency int) *Pool {
	t.Helper()
	ids := make([]*Identity, size)
	for i := range ids {
		ids[i] = New("acc"+string(rune('a'+i)), "token", "csrf", "", concurrency)
	}
	pool, err := NewPool(ids)
	require.NoError(t, err)
	return pool
}

func TestNewPoolRejectsEmpty(t *testing.T) {
	_, err := NewPool(nil)
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeConfig, typed.Type)
}

func TestAcquireRotatesRoundRobin(t *testing.T) {
	pool := newTestPool(t, 3, 2)
	ctx := context.Background()

	var order []string
	for i := 0; i < 6; i++ {
		lease, err := pool.Acquire(ctx)
		require.NoError(t, err)
		order = append(order, lease.Identity().Name)
		lease.Release()
	}

	assert.Equal(t, order[:3], order[3:], "rotation should repeat after a full cycle")
	assert.Len(t, uniqueStrings(order[:3]), 3, "a full cycle should visit every identity")
}

func TestGateBoundsConcurrencyPerIdentity(t *testing.T) {
	const (
		poolSize    = 2
		concurrency = 3
		workers     = 40
	)
	pool := newTestPool(t, poolSize, concurrency)
	ctx := context.Background()

	inFlight := make(map[string]*atomic.Int64)
	peaks := make(map[string]*atomic.Int64)
	for _, id := range pool.Identities() {
		inFlight[id.Name] = &atomic.Int64{}
		peaks[id.Name] = &atomic.Int64{}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := pool.Acquire(ctx)
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer lease.Release()

			name := lease.Identity().Name
			cur := inFlight[name].Add(1)
			for {
				peak := peaks[name].Load()
				if cur <= peak || peaks[name].CompareAndSwap(peak, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight[name].Add(-1)
		}()
	}
	wg.Wait()

	for name, peak := range peaks {
		assert.LessOrEqual(t, peak.Load(), int64(concurrency),
			"identity %s exceeded its concurrency gate", name)
	}
}

func TestAcquireHonorsCancellation(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReleaseIsIdempotent(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()
	lease.Release() // second release must not free a token it never held

	// The gate has capacity 1: acquire must succeed once, then block.
	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer again.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.Error(t, err, "double release must not create an extra slot")
}

func TestAcquireUpdatesLastUsed(t *testing.T) {
	pool := newTestPool(t, 1, 1)
	id := pool.Identities()[0]
	require.True(t, id.LastUsed().IsZero())

	lease, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer lease.Release()

	assert.False(t, id.LastUsed().IsZero())
}

func TestRecordFailureAccumulates(t *testing.T) {
	id := New("acc", "token", "csrf", "", 1)
	id.RecordFailure()
	id.RecordFailure()
	assert.Equal(t, int64(2), id.Failures())
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
