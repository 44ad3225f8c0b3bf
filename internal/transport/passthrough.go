package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/e1732a364fed/edgebridge/internal/logging"
	"go.uber.org/zap"
)

// PassthroughTimeout is the per-request timeout for ordinary
// (non-upgrade) HTTP forwarding.
const PassthroughTimeout = 15 * time.Second

// Passthrough forwards a normal HTTP request to origin verbatim
// (path and query already rewritten by the router), removing the
// Host header per §4.4 item 2. A timeout or I/O error yields a
// tagged failure so the failover driver retries against a different
// backend; once a response is read, this commits and writes directly
// to w.
func Passthrough(w http.ResponseWriter, r *http.Request, origin *url.URL) Outcome {
	ctx, cancel := context.WithTimeout(r.Context(), PassthroughTimeout)
	defer cancel()

	target := *r.URL
	target.Scheme = origin.Scheme
	target.Host = origin.Host

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return Outcome{Failed: true, Err: err}
	}
	req.Header = r.Header.Clone()
	req.Header.Del("Host")
	req.Host = origin.Host

	client := &http.Client{Timeout: PassthroughTimeout}
	resp, err := client.Do(req)
	if err != nil {
		if ce := logging.CanLogDebug(); ce != nil {
			ce.Write(zap.String("origin", origin.String()), zap.Error(err))
		}
		return Outcome{Failed: true, Err: err}
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)

	return Outcome{Status: resp.StatusCode}
}
