package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint is a stable hash of cfg's request-relevant fields, used
// to key the process-wide instance cache (§9) so a changed backend
// list or rate-limit setting produces fresh pool/limiter instances
// instead of reusing stale state.
func (cfg Config) Fingerprint() string {
	var b strings.Builder

	backends := make([]string, len(cfg.Backends))
	for i, spec := range cfg.Backends {
		backends[i] = fmt.Sprintf("%s|%d", spec.URL.String(), spec.Weight)
	}
	sort.Strings(backends)
	fmt.Fprintf(&b, "backends=%s;", strings.Join(backends, ","))

	fmt.Fprintf(&b, "hc=%s;sticky=%t;retries=%d;", cfg.HealthCheckInterval, cfg.StickySession, cfg.MaxRetries)
	fmt.Fprintf(&b, "rl=%t;perip=%d;permin=%d;idmax=%d;", cfg.RateLimitEnabled, cfg.MaxConnPerIP, cfg.MaxConnPerMin, cfg.IdentityMaxConns)

	targets := make([]string, len(cfg.Subscription.Targets))
	for i, t := range cfg.Subscription.Targets {
		targets[i] = fmt.Sprintf("%s|%s://%s:%d%s", t.Name, t.Scheme, t.Host, t.Port, t.BasePath)
	}
	sort.Strings(targets)
	fmt.Fprintf(&b, "sub=%t;preserve=%t;transform=%t;ttl=%s;targets=%s;",
		cfg.Subscription.Enabled, cfg.Subscription.PreserveDomain, cfg.Subscription.Transform,
		cfg.Subscription.CacheTTL, strings.Join(targets, ","))

	fmt.Fprintf(&b, "transport=%s;debug=%t;hide=%t;listen=%s", cfg.DefaultTransport, cfg.Debug, cfg.HideBackendURLs, cfg.Listen)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
