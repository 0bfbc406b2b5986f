package ratelimit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"xscraper/pkg/config"
	"xscraper/pkg/logger"
)

// fakeClock lets tests drive the governor without real sleeps.
type fakeClock struct {
	mu  sync.Mutex
	t   time.Time
	ops []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, d)
	c.t = c.t.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestGovernor(qps float64) (*Governor, *fakeClock) {
	clock := newFakeClock()
	g := NewGovernor(qps, 0, 0)
	g.now = clock.now
	g.sleep = clock.sleep
	return g, clock
}

func TestWaitSpacesConsecutiveCalls(t *testing.T) {
	for _, qps := range []float64{0.5, 1, 2, 10} {
		g, clock := newTestGovernor(qps)
		ctx := context.Background()

		if err := g.Wait(ctx); err != nil {
			t.Fatalf("first Wait failed: %v", err)
		}
		first := clock.now()

		if err := g.Wait(ctx); err != nil {
			t.Fatalf("second Wait failed: %v", err)
		}
		second := clock.now()

		minDelay := time.Duration(float64(time.Second) / qps)
		if got := second.Sub(first); got < minDelay {
			t.Errorf("qps=%v: grants spaced %v, want at least %v", qps, got, minDelay)
		}
	}
}

func TestWaitSkipsSleepWhenEnoughElapsed(t *testing.T) {
	g, clock := newTestGovernor(1)
	ctx := context.Background()

	if err := g.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	clock.advance(2 * time.Second)
	if err := g.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	if len(clock.ops) != 0 {
		t.Errorf("expected no sleeps when spacing already satisfied, got %v", clock.ops)
	}
}

func TestWaitFirstCallDoesNotSleep(t *testing.T) {
	g, clock := newTestGovernor(0.1)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(clock.ops) != 0 {
		t.Errorf("first grant slept %v, expected none", clock.ops)
	}
}

func TestNonPositiveQPSClampedToDefault(t *testing.T) {
	for _, qps := range []float64{0, -3} {
		g := NewGovernor(qps, 0, 0)
		if g.MinDelay() != time.Second {
			t.Errorf("qps=%v: min delay = %v, want 1s", qps, g.MinDelay())
		}
	}
}

func TestJitterWithinWindow(t *testing.T) {
	g := NewGovernor(1, 200*time.Millisecond, time.Second)
	for i := 0; i < 100; i++ {
		j := g.jitter()
		if j < 200*time.Millisecond || j > time.Second {
			t.Fatalf("jitter %v outside [200ms, 1s]", j)
		}
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	g := NewGovernor(0.001, 0, 0) // 1000s spacing forces a sleep
	ctx, cancel := context.WithCancel(context.Background())

	if err := g.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	cancel()
	if err := g.Wait(ctx); err == nil {
		t.Error("expected context error from cancelled Wait")
	}
}

func TestWaitReportsPacingDelay(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "governor.log")
	if err := logger.Initialize(&config.LoggingConfig{Level: "debug", File: logFile}); err != nil {
		t.Fatal(err)
	}

	g, _ := newTestGovernor(1)
	ctx := context.Background()
	if err := g.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pacing outbound request") {
		t.Error("expected a pacing record for a delayed grant")
	}
}

func TestConcurrentCallersAreAllSpaced(t *testing.T) {
	g, clock := newTestGovernor(10)
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	grants := make([]time.Time, callers)
	var mu sync.Mutex
	next := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Wait(ctx); err != nil {
				t.Errorf("Wait failed: %v", err)
				return
			}
			mu.Lock()
			grants[next] = clock.now()
			next++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		gap := grants[i].Sub(grants[i-1])
		if gap < 0 {
			gap = -gap
		}
		if gap != 0 && gap < g.MinDelay() {
			t.Errorf("grants %d and %d spaced %v, want 0 or >= %v", i-1, i, gap, g.MinDelay())
		}
	}
}
