package observability

import (
	"encoding/json"
	"net/http"

	"github.com/e1732a364fed/edgebridge/internal/config"
)

type statusResponse struct {
	MaxConnPerIP        int      `json:"maxConnPerIP"`
	MaxConnPerMin       int      `json:"maxConnPerMin"`
	IdentityMaxConns    int      `json:"identityMaxConns"`
	SubscriptionTargets []string `json:"subscriptionTargets"`
	DefaultTransport    string   `json:"defaultTransport"`
}

// Status exposes the §4.9 debug snapshot. Callers must gate this
// behind cfg.Debug themselves (404 otherwise) — Status itself always
// serves, since the gating decision belongs to the top-level mux.
func Status(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, len(cfg.Subscription.Targets))
		for i, t := range cfg.Subscription.Targets {
			names[i] = t.Name
		}
		resp := statusResponse{
			MaxConnPerIP:        cfg.MaxConnPerIP,
			MaxConnPerMin:       cfg.MaxConnPerMin,
			IdentityMaxConns:    cfg.IdentityMaxConns,
			SubscriptionTargets: names,
			DefaultTransport:    cfg.DefaultTransport,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
