package pool

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/e1732a364fed/edgebridge/internal/logging"
	"github.com/e1732a364fed/edgebridge/internal/xalgo"
)

const (
	ProbePath        = "/health"
	ProbeTimeout     = 4 * time.Second
	DefaultInterval  = 30 * time.Second
)

// Pool is the process-wide weighted backend pool. All mutation of the
// backend set, the alias tables and the sticky heap happens under mu;
// Select only reads the already-built tables, so selection itself
// never blocks on probe or health-transition work (§5's "no component
// may hold a pool-mutation lock across [a network] suspension point").
type Pool struct {
	mu sync.RWMutex

	backends []*Backend
	indexOf  map[*Backend]int

	healthyTable *aliasTable
	fullTable    *aliasTable

	stickyHealthy *xalgo.Heap[stickyEntry]
	stickyFull    *xalgo.Heap[stickyEntry]

	Sticky bool

	interval   time.Duration
	nextProbe  time.Time
	probing    atomic.Bool
	httpClient *http.Client

	fellBackToAny atomic.Bool
}

// New builds a pool from a set of (url, weight) configured backends.
// Duplicate URLs (by canonical string) collapse, summing weights.
// interval <= 0 disables periodic probing (used by tests, and by
// callers that want to drive probing explicitly); production config
// resolution always supplies a positive interval, defaulting to
// DefaultInterval.
func New(backends []BackendSpec, sticky bool, interval time.Duration) *Pool {
	p := &Pool{
		Sticky:   sticky,
		interval: interval,
		indexOf:  make(map[*Backend]int),
		httpClient: &http.Client{
			Timeout: ProbeTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	seen := make(map[string]*Backend)
	order := 0
	for _, spec := range backends {
		key := spec.URL.String()
		if existing, ok := seen[key]; ok {
			existing.Weight += spec.Weight
			continue
		}
		b := NewBackend(spec.URL, spec.Weight)
		seen[key] = b
		p.backends = append(p.backends, b)
		p.indexOf[b] = order
		order++
	}
	p.rebuild()
	return p
}

type BackendSpec struct {
	URL    *url.URL
	Weight int
}

// All returns the configured backend list in configuration order.
// Callers must not mutate the returned slice.
func (p *Pool) All() []*Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Backend, len(p.backends))
	copy(out, p.backends)
	return out
}

func (p *Pool) healthySubset() []*Backend {
	out := make([]*Backend, 0, len(p.backends))
	for _, b := range p.backends {
		if b.Healthy() {
			out = append(out, b)
		}
	}
	return out
}

// rebuild recomputes the healthy-subset alias table, the full-set
// alias table, and (if sticky) the matching min-index heaps. Called
// under p.mu held for writing.
func (p *Pool) rebuild() {
	p.fullTable = buildAliasTable(p.backends)
	healthy := p.healthySubset()
	p.healthyTable = buildAliasTable(healthy)

	if p.Sticky {
		p.stickyFull = buildStickyHeap(p.backends, p.indexOf)
		p.stickyHealthy = buildStickyHeap(healthy, p.indexOf)
	}
}

// onHealthChange re-derives both alias tables (and sticky heaps)
// after a backend's health bit flips.
func (p *Pool) onHealthChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuild()
}

// ReportSuccess/ReportFailure apply the hysteresis rule to b and
// trigger a rebuild exactly when that flips its health.
func (p *Pool) ReportSuccess(b *Backend) {
	if b.ReportSuccess() {
		p.onHealthChange()
	}
}

func (p *Pool) ReportFailure(b *Backend) {
	if b.ReportFailure() {
		p.onHealthChange()
	}
}

// Select returns a backend, excluding any whose canonical URL string
// is present in exclude. See package doc / spec §4.2 for the fallback
// ladder: healthy subset -> full set -> first configured backend.
func (p *Pool) Select(exclude map[string]bool) *Backend {
	p.maybeScheduleProbe()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.backends) == 0 {
		return nil
	}

	if p.Sticky && len(p.backends) > 1 {
		if b := p.selectSticky(p.stickyHealthy, exclude); b != nil {
			return b
		}
		p.fellBackToAny.Store(true)
		if b := p.selectSticky(p.stickyFull, exclude); b != nil {
			return b
		}
		return p.backends[0]
	}

	if b := p.selectWeighted(p.healthyTable, exclude); b != nil {
		return b
	}
	p.fellBackToAny.Store(true)
	if b := p.selectWeighted(p.fullTable, exclude); b != nil {
		return b
	}
	return p.backends[0]
}

// FellBackToAny reports whether, since the last call, Select was ever
// forced to fall back from "healthy subset" to "full set" because the
// healthy subset was empty. Exposed on the pool only: neither /health
// nor /status reads it.
func (p *Pool) FellBackToAny() bool { return p.fellBackToAny.Swap(false) }

func (p *Pool) selectWeighted(t *aliasTable, exclude map[string]bool) *Backend {
	if t == nil || len(t.backends) == 0 {
		return nil
	}
	attempts := len(exclude)
	if attempts == 0 {
		return t.sample()
	}
	tries := 4
	if n := 2 * len(t.backends); n > tries {
		tries = n
	}
	for i := 0; i < tries; i++ {
		b := t.sample()
		if b != nil && !exclude[b.Identity()] {
			return b
		}
	}
	for _, b := range t.backends {
		if !exclude[b.Identity()] {
			return b
		}
	}
	return nil
}

func (p *Pool) selectSticky(h *xalgo.Heap[stickyEntry], exclude map[string]bool) *Backend {
	if h == nil || h.Len() == 0 {
		return nil
	}
	if head := h.Peek(); !exclude[head.backend.Identity()] {
		return head.backend
	}
	for _, e := range h.Array {
		if !exclude[e.backend.Identity()] {
			return e.backend
		}
	}
	return nil
}

// maybeScheduleProbe opportunistically kicks off a probe cycle when
// the configured interval has elapsed. The next-check time is set
// before dispatch to prevent double-scheduling from concurrent
// selection calls, and probing itself guards against overlap with an
// atomic in-flight flag.
func (p *Pool) maybeScheduleProbe() {
	if p.interval <= 0 {
		return
	}
	now := time.Now()
	p.mu.Lock()
	due := now.After(p.nextProbe)
	if due {
		p.nextProbe = now.Add(p.interval)
	}
	backends := make([]*Backend, len(p.backends))
	copy(backends, p.backends)
	p.mu.Unlock()

	if !due {
		return
	}
	if !p.probing.CAS(false, true) {
		return
	}
	go func() {
		defer p.probing.Store(false)
		p.runProbeCycle(backends)
	}()
}

func (p *Pool) runProbeCycle(backends []*Backend) {
	for _, b := range backends {
		p.probeOne(b)
	}
}

func (p *Pool) probeOne(b *Backend) {
	ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
	defer cancel()

	probeURL := *b.URL
	probeURL.Path = ProbePath
	probeURL.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	b.MarkProbed(time.Now())
	if err != nil {
		p.ReportFailure(b)
		return
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ce := logging.CanLogDebug(); ce != nil {
			ce.Write()
		}
		p.ReportFailure(b)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 500 {
		p.ReportSuccess(b)
	} else {
		p.ReportFailure(b)
	}
}
