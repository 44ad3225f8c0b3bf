package pool

import (
	"math/rand"
	"sync"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// aliasTable wraps gonum's sampleuv.Weighted sampler over a fixed set
// of backends. sampleuv.Weighted keeps its weights in a binary heap,
// so each draw (Take plus Reweight) costs O(log n) in the number of
// backends; it is not a Vose/Walker alias table and does not give
// O(1) draws. The table itself (backends/weights/weighted) is rebuilt
// wholesale whenever the underlying backend set or weights change, but
// sample() mutates the *sampleuv.Weighted's internal state on every
// call (Take/Reweight) and the golang.org/x/exp/rand source it draws
// from is not safe for concurrent use, so mu serializes sampling
// across the concurrent Select calls §5 requires.
type aliasTable struct {
	mu       sync.Mutex
	backends []*Backend
	weights  []float64
	weighted *sampleuv.Weighted
}

// buildAliasTable constructs an alias table over backends. Weights
// are already clamped to >=1 by NewBackend; sampleuv requires
// float64 weights so they're converted directly.
func buildAliasTable(backends []*Backend) *aliasTable {
	if len(backends) == 0 {
		return &aliasTable{}
	}
	weights := make([]float64, len(backends))
	for i, b := range backends {
		weights[i] = float64(b.Weight)
	}
	w := sampleuv.NewWeighted(weights, exprand.NewSource(uint64(rand.Int63())))
	return &aliasTable{backends: backends, weights: weights, weighted: &w}
}

// sample draws one backend. Returns nil if the table is empty.
//
// sampleuv.Weighted.Take samples without replacement, zeroing the
// drawn entry's weight; since the pool needs independent draws with
// replacement (selection frequency must converge to w_i/sum(w)), the
// drawn entry's original weight is restored via Reweight immediately
// after each draw.
func (t *aliasTable) sample() *Backend {
	if len(t.backends) == 0 {
		return nil
	}
	if t.weighted == nil {
		return t.backends[rand.Intn(len(t.backends))]
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.weighted.Take()
	if !ok {
		return t.backends[rand.Intn(len(t.backends))]
	}
	t.weighted.Reweight(idx, t.weights[idx])
	return t.backends[idx]
}
