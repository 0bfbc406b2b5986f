package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before the next attempt.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay on each failed attempt and adds a
// bounded random jitter so concurrent retries do not align.
type ExponentialBackoff struct {
	// BaseDelay is the delay after the first failure.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Multiplier is the growth factor between attempts.
	Multiplier float64
	// JitterSpan is the upper bound of the uniform additive jitter.
	JitterSpan time.Duration
}

// DefaultExponentialBackoff matches the 2^i + random(0,1)s schedule used
// between fetch attempts.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  1 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		JitterSpan: 1 * time.Second,
	}
}

// NextDelay returns base * multiplier^(attempt-1) capped at MaxDelay,
// plus uniform jitter in [0, JitterSpan).
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	d := time.Duration(delay)
	if eb.JitterSpan > 0 {
		d += time.Duration(rand.Int63n(int64(eb.JitterSpan)))
	}
	return d
}

// ConstantBackoff waits the same delay between every attempt.
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for the delay or returns early when the context ends.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
