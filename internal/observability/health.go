// Package observability implements the /health and /status endpoints
// of §4.9.
package observability

import (
	"encoding/json"
	"net/http"

	"github.com/e1732a364fed/edgebridge/internal/pool"
)

type backendView struct {
	URL     string `json:"url,omitempty"`
	Healthy bool   `json:"healthy"`
}

type healthResponse struct {
	Status           string        `json:"status"`
	Timestamp        int64         `json:"timestamp"`
	TotalBackends    int           `json:"totalBackends"`
	HealthyBackends  int           `json:"healthyBackends"`
	UnhealthyBackends int          `json:"unhealthyBackends,omitempty"`
	Backends         []backendView `json:"backends,omitempty"`
}

// Health writes the §4.9 health summary. hideURLs redacts per-backend
// URLs and omits the per-backend list entirely, showing only
// aggregate counts.
func Health(p *pool.Pool, hideURLs bool, nowUnix int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		backends := p.All()
		healthy := 0
		views := make([]backendView, 0, len(backends))
		for _, b := range backends {
			if b.Healthy() {
				healthy++
			}
			if !hideURLs {
				views = append(views, backendView{URL: b.Identity(), Healthy: b.Healthy()})
			}
		}

		status := "degraded"
		if healthy > 0 {
			status = "ok"
		}

		resp := healthResponse{
			Status:          status,
			Timestamp:       nowUnix,
			TotalBackends:   len(backends),
			HealthyBackends: healthy,
		}
		if hideURLs {
			resp.UnhealthyBackends = len(backends) - healthy
		} else {
			resp.Backends = views
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
