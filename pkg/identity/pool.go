package identity

import (
	"context"
	"sync"

	errs "xscraper/pkg/errors"
)

// Pool hands out identities round-robin. The rotation index is the only
// shared mutable state and is guarded by a mutex scoped to the
// read-modify-write; the blocking gate acquire happens outside it so one
// saturated identity does not stall rotation for the others.
type Pool struct {
	identities []*Identity

	mu  sync.Mutex
	idx int
}

// NewPool creates a pool from a non-empty identity list.
func NewPool(identities []*Identity) (*Pool, error) {
	if len(identities) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "identity pool requires at least one identity", 0)
	}
	return &Pool{identities: identities}, nil
}

// Size returns the number of identities in the pool.
func (p *Pool) Size() int {
	return len(p.identities)
}

// Identities returns the pooled identities, for inspection.
func (p *Pool) Identities() []*Identity {
	return p.identities
}

// Acquire picks the next identity in rotation and blocks until its
// concurrency gate admits the caller or the context is cancelled. The
// returned lease must be released on every exit path; Release is
// idempotent so a deferred call is always safe.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	id := p.identities[p.idx]
	p.idx = (p.idx + 1) % len(p.identities)
	p.mu.Unlock()

	select {
	case id.gate <- struct{}{}:
		id.Touch()
		return &Lease{identity: id}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lease is a scoped hold on one identity's concurrency gate.
type Lease struct {
	identity *Identity

	mu       sync.Mutex
	released bool
}

// Identity returns the leased identity.
func (l *Lease) Identity() *Identity {
	return l.identity
}

// Release returns the gate token. Safe to call more than once.
func (l *Lease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	<-l.identity.gate
}
