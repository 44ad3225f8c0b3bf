package pool

import "github.com/e1732a364fed/edgebridge/internal/xalgo"

// stickyEntry pairs a backend with its position in the configured
// backend order, so the heap can always surface the earliest healthy
// entry ("first healthy backend in configured order").
type stickyEntry struct {
	index   int
	backend *Backend
}

// buildStickyHeap builds a min-index heap over backends (the pool
// builds one over the healthy subset and one over the full set),
// rebuilt whenever health changes (mirrors the alias-table rebuild
// trigger). Peek() gives O(1) access to the sticky pick.
func buildStickyHeap(backends []*Backend, indexOf map[*Backend]int) *xalgo.Heap[stickyEntry] {
	h := &xalgo.Heap[stickyEntry]{
		LessFunc: func(i, j int, a []stickyEntry) bool { return a[i].index < a[j].index },
	}
	for _, b := range backends {
		h.Array = append(h.Array, stickyEntry{index: indexOf[b], backend: b})
	}
	h.Init()
	return h
}
