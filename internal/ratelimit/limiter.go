// Package ratelimit implements the per-IP admission gate: a
// concurrent-sessions cap conjoined with a token-bucket rate cap.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

const (
	// ConcurrentRetryAfter is the fixed Retry-After given when the
	// concurrent-sessions gate (not the rate gate) is saturated.
	ConcurrentRetryAfter = 10 * time.Second

	idleGCAfter = 60 * time.Second
)

// Config holds the per-IP caps.
type Config struct {
	MaxConnPerIP  int
	MaxConnPerMin int
}

type ipState struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
	active     map[string]struct{}
}

// Limiter tracks per-IP state, created lazily on first admission
// check for a given IP and garbage collected once idle.
type Limiter struct {
	cfg Config

	mu    sync.Mutex
	byIP  map[string]*ipState
}

func New(cfg Config) *Limiter {
	if cfg.MaxConnPerIP <= 0 {
		cfg.MaxConnPerIP = 1 << 30 // effectively unlimited
	}
	if cfg.MaxConnPerMin <= 0 {
		cfg.MaxConnPerMin = 1 << 30
	}
	return &Limiter{cfg: cfg, byIP: make(map[string]*ipState)}
}

func (l *Limiter) refillRatePerMs() float64 {
	return float64(l.cfg.MaxConnPerMin) / 60000.0
}

func (l *Limiter) stateFor(ip string) *ipState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.byIP[ip]
	if !ok {
		now := time.Now()
		s = &ipState{
			tokens:     float64(l.cfg.MaxConnPerMin),
			lastRefill: now,
			lastSeen:   now,
			active:     make(map[string]struct{}),
		}
		l.byIP[ip] = s
	}
	return s
}

func (s *ipState) refill(cfg Config, rate float64, now time.Time) {
	elapsedMs := float64(now.Sub(s.lastRefill).Milliseconds())
	if elapsedMs <= 0 {
		return
	}
	s.tokens += elapsedMs * rate
	capacity := float64(cfg.MaxConnPerMin)
	if s.tokens > capacity {
		s.tokens = capacity
	}
	s.lastRefill = now
}

// CheckConnectionAllowed reports whether ip may open a new connection
// right now. It is idempotent: it does not consume a token or touch
// the active set.
func (l *Limiter) CheckConnectionAllowed(ip string) bool {
	s := l.stateFor(ip)
	rate := l.refillRatePerMs()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.refill(l.cfg, rate, now)
	s.lastSeen = now

	if len(s.active) >= l.cfg.MaxConnPerIP {
		return false
	}
	return s.tokens >= 1
}

// RegisterConnection consumes one token and admits id into ip's
// active set. Callers must have just confirmed CheckConnectionAllowed;
// RegisterConnection does not itself deny admission.
func (l *Limiter) RegisterConnection(ip, id string) {
	s := l.stateFor(ip)
	rate := l.refillRatePerMs()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.refill(l.cfg, rate, now)
	s.lastSeen = now

	s.tokens -= 1
	if s.tokens < 0 {
		s.tokens = 0
	}
	s.active[id] = struct{}{}
}

// UnregisterConnection removes id from ip's active set. A no-op for
// an unknown (ip, id) pair.
func (l *Limiter) UnregisterConnection(ip, id string) {
	l.mu.Lock()
	s, ok := l.byIP[ip]
	l.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.active, id)
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// GetRetryAfterSeconds computes the Retry-After value for a rejected
// admission attempt.
func (l *Limiter) GetRetryAfterSeconds(ip string) int {
	s := l.stateFor(ip)
	rate := l.refillRatePerMs()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) >= l.cfg.MaxConnPerIP {
		return int(ConcurrentRetryAfter.Seconds())
	}

	needed := 1 - s.tokens
	if needed <= 0 {
		return 1
	}
	seconds := math.Ceil(needed / rate / 1000.0)
	if seconds < 1 {
		seconds = 1
	}
	return int(seconds)
}

// GC removes IP entries that are empty, fully refilled, and idle for
// over a minute. Intended to be run periodically by the owner.
func (l *Limiter) GC() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, s := range l.byIP {
		s.mu.Lock()
		idle := len(s.active) == 0 &&
			s.tokens >= float64(l.cfg.MaxConnPerMin) &&
			now.Sub(s.lastSeen) > idleGCAfter
		s.mu.Unlock()
		if idle {
			delete(l.byIP, ip)
		}
	}
}
