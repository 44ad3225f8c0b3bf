// Package registry is the process-wide instance cache of §9: pool,
// rate limiter and subscription cache instances are expensive enough
// (background probe/sweep goroutines, warmed caches) that they are
// built once per distinct configuration fingerprint and reused across
// requests, rather than rebuilt per request.
package registry

import (
	"sync"

	"github.com/e1732a364fed/edgebridge/internal/identity"
	"github.com/e1732a364fed/edgebridge/internal/pool"
	"github.com/e1732a364fed/edgebridge/internal/ratelimit"
	"github.com/e1732a364fed/edgebridge/internal/subscription"
)

// maxEntries bounds the cache per §9's guidance; once exceeded the
// whole map is cleared rather than tracking per-entry recency, since
// a config change in steady-state operation is rare.
const maxEntries = 32

// Instance bundles the shared, per-configuration components a request
// needs.
type Instance struct {
	Pool       *pool.Pool
	RateLimit  *ratelimit.Limiter
	Identity   *identity.Manager
	Subscribe  *subscription.Cache
}

// Registry is a mutex-guarded map from config fingerprint to
// Instance, constructed lazily on first request that needs a given
// fingerprint.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Instance
}

func New() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// GetOrCreate returns the cached Instance for fingerprint, building
// one with build() on first use.
func (r *Registry) GetOrCreate(fingerprint string, build func() *Instance) *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[fingerprint]; ok {
		return inst
	}
	if len(r.instances) >= maxEntries {
		r.instances = make(map[string]*Instance)
	}
	inst := build()
	r.instances[fingerprint] = inst
	return inst
}
