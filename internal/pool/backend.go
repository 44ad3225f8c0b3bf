// Package pool implements the weighted backend pool: weighted random
// selection via gonum.org/v1/gonum/stat/sampleuv's heap-based Weighted
// sampler (O(log n) per draw, not an O(1) alias table; a dependency the
// teacher already carries for gonum.org/v1/gonum/stat/combin),
// hysteretic health tracking, and periodic background probes.
package pool

import (
	"net/url"
	"sync"
	"time"
)

// Backend is one upstream origin in the pool.
type Backend struct {
	URL    *url.URL
	Weight int

	mu                sync.Mutex
	healthy           bool
	lastProbed        time.Time
	totalFailures     uint64
	consecutiveFails  int
	consecutiveOK     int
}

// NewBackend constructs a Backend starting out healthy (optimistic
// default so a freshly-started pool can serve before its first probe
// cycle completes), with weight clamped to >=1 per the alias-table
// invariant.
func NewBackend(u *url.URL, weight int) *Backend {
	if weight < 1 {
		weight = 1
	}
	return &Backend{URL: u, Weight: weight, healthy: true}
}

// Identity is the canonical string form used to dedupe configured
// backends and to exclude already-tried origins during failover.
func (b *Backend) Identity() string { return b.URL.String() }

func (b *Backend) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.healthy
}

// ReportFailure applies the hysteresis rule: a single failure flips a
// currently-healthy backend unhealthy immediately. Returns true if
// this call caused a health transition.
func (b *Backend) ReportFailure() (transitioned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalFailures++
	b.consecutiveFails++
	b.consecutiveOK = 0
	if b.healthy {
		b.healthy = false
		transitioned = true
	}
	return
}

// ReportSuccess resets the failure streak and, for an unhealthy
// backend, requires 2 consecutive successes before flipping healthy.
func (b *Backend) ReportSuccess() (transitioned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	if b.healthy {
		return false
	}
	b.consecutiveOK++
	if b.consecutiveOK >= 2 {
		b.healthy = true
		b.consecutiveOK = 0
		transitioned = true
	}
	return
}

func (b *Backend) MarkProbed(at time.Time) {
	b.mu.Lock()
	b.lastProbed = at
	b.mu.Unlock()
}

func (b *Backend) LastProbed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastProbed
}

func (b *Backend) FailureCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalFailures
}
