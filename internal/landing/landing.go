// Package landing renders the static "/" and "/index.html" responses
// of §4.10: a small HTML page when subscription mode is off, or a
// plain-text target listing when it is on.
package landing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/e1732a364fed/edgebridge/internal/config"
)

const pageHTML = `<!DOCTYPE html>
<html>
<head><title>edgebridge</title></head>
<body>
<h1>edgebridge</h1>
<p>This endpoint proxies tunneled protocol upgrades. Nothing to see here.</p>
</body>
</html>
`

// Handler returns the landing-page handler for cfg.
func Handler(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")

		if !cfg.Subscription.Enabled {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(pageHTML))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		var b strings.Builder
		for _, t := range cfg.Subscription.Targets {
			fmt.Fprintf(&b, "%s: /%s/sub/<token>  (base path %s)\n", t.Name, t.Name, t.BasePath)
		}
		if len(cfg.Subscription.Targets) == 0 {
			b.WriteString("subscription mode enabled, no targets configured\n")
		}
		_, _ = w.Write([]byte(b.String()))
	}
}
