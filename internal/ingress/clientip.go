// Package ingress resolves the real client IP at the edge and
// optionally wraps the listener with PROXY protocol support so that
// IP survives an intermediate TCP load balancer, per §6.
package ingress

import (
	"net/http"
	"strings"
)

// ClientIP resolves the admission-relevant client address: prefer
// cf-connecting-ip, then the first value of x-forwarded-for, then
// x-real-ip, else "unknown".
func ClientIP(r *http.Request) string {
	if v := r.Header.Get("cf-connecting-ip"); v != "" {
		return strings.TrimSpace(v)
	}
	if v := r.Header.Get("x-forwarded-for"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if v := r.Header.Get("x-real-ip"); v != "" {
		return strings.TrimSpace(v)
	}
	return "unknown"
}
