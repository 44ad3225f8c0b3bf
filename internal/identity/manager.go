// Package identity implements the per-identity concurrent-session
// cap with same-address replacement, as described in spec §3/§4.7.
//
// Sessions are modeled as two plain maps indexed by (bucket-id,
// session-id) rather than a linked object graph, per §9's design
// note on avoiding cyclic references between sessions and buckets.
package identity

import (
	"sync"
	"time"
)

const (
	CloseCodeReplaced = 1008
	ReasonReplaced    = "Connection replaced by a newer session"

	CloseCodeStale = 1001
	ReasonStale    = "Stale connection cleanup"

	staleAfter     = 7 * 24 * time.Hour
	idleBucketTTL  = 10 * time.Minute
	maxBuckets     = 10000
	sweepMinPeriod = 60 * time.Second
)

// Disconnector forcibly closes a session; installed via the bridge's
// onReady callback. Disconnect implementations must never panic and
// must be idempotent.
type Disconnector func(code int, reason string)

type session struct {
	id         string
	address    string
	createdAt  time.Time
	disconnect Disconnector
}

type bucket struct {
	sessions    map[string]*session
	byAddress   map[string]map[string]struct{}
	lastTouched time.Time
}

func newBucket() *bucket {
	return &bucket{
		sessions:  make(map[string]*session),
		byAddress: make(map[string]map[string]struct{}),
	}
}

// Manager tracks identity -> bucket state and runs the background
// staleness/idle sweep.
type Manager struct {
	Max int // 0 disables the manager (all checks admit)

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(max int) *Manager {
	return &Manager{Max: max, buckets: make(map[string]*bucket)}
}

// CheckConnectionAllowed admits if the bucket has fewer than Max
// active sessions, or if address already holds a session in this
// bucket (same-address reconnect is always admitted, since
// RegisterConnection will replace rather than add).
func (m *Manager) CheckConnectionAllowed(id, address string) bool {
	if m.Max <= 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[id]
	if !ok {
		return true
	}
	if _, already := b.byAddress[address]; already {
		return true
	}
	return len(b.sessions) < m.Max
}

// RegisterConnection installs a new session for (id, address),
// replacing (disconnecting with code 1008) any existing sessions from
// the same address in the same bucket.
func (m *Manager) RegisterConnection(id, address, sessionID string, disconnect Disconnector) {
	m.mu.Lock()
	b, ok := m.buckets[id]
	if !ok {
		if len(m.buckets) >= maxBuckets {
			m.evictOldestEmptyLocked()
		}
		b = newBucket()
		m.buckets[id] = b
	}

	var toReplace []*session
	if existingIDs, already := b.byAddress[address]; already {
		for sid := range existingIDs {
			if s, ok := b.sessions[sid]; ok {
				toReplace = append(toReplace, s)
			}
		}
	}

	s := &session{id: sessionID, address: address, createdAt: time.Now(), disconnect: disconnect}
	b.sessions[sessionID] = s
	if b.byAddress[address] == nil {
		b.byAddress[address] = make(map[string]struct{})
	}
	b.byAddress[address][sessionID] = struct{}{}
	b.lastTouched = time.Now()
	m.mu.Unlock()

	for _, old := range toReplace {
		m.disconnectSession(id, old, CloseCodeReplaced, ReasonReplaced)
	}
}

// UnregisterConnection removes a session. No-op for an unknown
// (id, sessionID) pair.
func (m *Manager) UnregisterConnection(id, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[id]
	if !ok {
		return
	}
	s, ok := b.sessions[sessionID]
	if !ok {
		return
	}
	delete(b.sessions, sessionID)
	if addrSet, ok := b.byAddress[s.address]; ok {
		delete(addrSet, sessionID)
		if len(addrSet) == 0 {
			delete(b.byAddress, s.address)
		}
	}
	b.lastTouched = time.Now()
}

// disconnectSession invokes a session's disconnect callback outside
// the manager's lock and removes it from its bucket. Exceptions from
// the callback are swallowed per §7's error-handling design.
func (m *Manager) disconnectSession(id string, s *session, code int, reason string) {
	defer func() { recover() }()
	if s.disconnect != nil {
		s.disconnect(code, reason)
	}
	m.UnregisterConnection(id, s.id)
}

// Sweep flags sessions older than 7 days for disconnect, empties
// their buckets, and evicts idle empty buckets. Intended to be driven
// by a ticker no faster than sweepMinPeriod.
func (m *Manager) Sweep() {
	now := time.Now()

	type staleEntry struct {
		id string
		s  *session
	}
	var stale []staleEntry

	m.mu.Lock()
	for id, b := range m.buckets {
		for _, s := range b.sessions {
			if now.Sub(s.createdAt) > staleAfter {
				stale = append(stale, staleEntry{id: id, s: s})
			}
		}
	}
	for id, b := range m.buckets {
		if len(b.sessions) == 0 && now.Sub(b.lastTouched) > idleBucketTTL {
			delete(m.buckets, id)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		m.disconnectSession(e.id, e.s, CloseCodeStale, ReasonStale)
	}
}

// evictOldestEmptyLocked evicts the oldest empty bucket to keep the
// total bucket count bounded. Must be called with m.mu held.
func (m *Manager) evictOldestEmptyLocked() {
	var oldestID string
	var oldestTime time.Time
	found := false
	for id, b := range m.buckets {
		if len(b.sessions) == 0 {
			if !found || b.lastTouched.Before(oldestTime) {
				oldestID, oldestTime, found = id, b.lastTouched, true
			}
		}
	}
	if found {
		delete(m.buckets, oldestID)
	}
}

// RunSweeper starts a background goroutine performing Sweep every
// period (clamped to sweepMinPeriod). Stop the returned func to exit.
func (m *Manager) RunSweeper(period time.Duration) (stop func()) {
	if period < sweepMinPeriod {
		period = sweepMinPeriod
	}
	done := make(chan struct{})
	t := time.NewTicker(period)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.Sweep()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
