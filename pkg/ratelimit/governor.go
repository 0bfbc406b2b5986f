package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"xscraper/pkg/logger"
)

// Governor enforces a minimum spacing between any two outbound requests
// across all callers, regardless of which identity issues them. The
// critical section covers the read of the last grant, the sleep, and the
// stamp of the new grant time, so concurrent callers cannot both observe
// a stale elapsed time and under-space their requests.
type Governor struct {
	minDelay   time.Duration
	jitterLow  time.Duration
	jitterHigh time.Duration

	mu   sync.Mutex
	last time.Time

	// seams for deterministic tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGovernor creates a Governor allowing qps requests per second plus a
// uniform jitter drawn from [jitterLow, jitterHigh] on each delayed
// grant. A non-positive qps is clamped to 1.0.
func NewGovernor(qps float64, jitterLow, jitterHigh time.Duration) *Governor {
	if qps <= 0 {
		qps = 1.0
	}
	if jitterHigh < jitterLow {
		jitterHigh = jitterLow
	}
	return &Governor{
		minDelay:   time.Duration(float64(time.Second) / qps),
		jitterLow:  jitterLow,
		jitterHigh: jitterHigh,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Wait blocks until the governor grants the caller a slot, or until the
// context is cancelled. The grant time is stamped unconditionally before
// the section is released.
func (g *Governor) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		elapsed := g.now().Sub(g.last)
		if remaining := g.minDelay - elapsed; remaining > 0 {
			delay := remaining + g.jitter()
			logger.LogPacing(delay)
			if err := g.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	g.last = g.now()
	return nil
}

// MinDelay returns the configured minimum spacing between grants.
func (g *Governor) MinDelay() time.Duration {
	return g.minDelay
}

func (g *Governor) jitter() time.Duration {
	span := g.jitterHigh - g.jitterLow
	if span <= 0 {
		return g.jitterLow
	}
	return g.jitterLow + time.Duration(rand.Int63n(int64(span)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
