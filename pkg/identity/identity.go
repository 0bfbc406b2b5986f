package identity

import (
	"sync"
	"sync/atomic"
	"time"
)

// Identity is a credentialed actor used to authenticate outbound
// requests. Identities live for the whole run; last-used and failure
// counters are updated on every use and may be read externally to drive
// a retirement policy.
type Identity struct {
	Name      string
	AuthToken string
	CSRFToken string
	Proxy     string

	gate chan struct{}

	mu       sync.Mutex
	lastUsed time.Time

	failures atomic.Int64
}

// New creates an identity with a concurrency gate of the given capacity.
func New(name, authToken, csrfToken, proxy string, concurrency int) *Identity {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Identity{
		Name:      name,
		AuthToken: authToken,
		CSRFToken: csrfToken,
		Proxy:     proxy,
		gate:      make(chan struct{}, concurrency),
	}
}

// Touch stamps the identity as used now.
func (id *Identity) Touch() {
	id.mu.Lock()
	id.lastUsed = time.Now()
	id.mu.Unlock()
}

// LastUsed returns the time of the most recent use.
func (id *Identity) LastUsed() time.Time {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.lastUsed
}

// RecordFailure increments the cumulative failure counter.
func (id *Identity) RecordFailure() {
	id.failures.Add(1)
}

// Failures returns the cumulative failure count.
func (id *Identity) Failures() int64 {
	return id.failures.Load()
}
