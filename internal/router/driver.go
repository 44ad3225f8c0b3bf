package router

import (
	"net/http"

	"github.com/e1732a364fed/edgebridge/internal/logging"
	"github.com/e1732a364fed/edgebridge/internal/pool"
	"github.com/e1732a364fed/edgebridge/internal/retry"
	"github.com/e1732a364fed/edgebridge/internal/transport"
	"go.uber.org/zap"
)

// Driver runs the upgrade/failover loop of §4.3: select a backend,
// invoke the transport handler, retry against a different backend on
// a tagged failure, and give up with a 502 once MaxRetries attempts
// are exhausted.
type Driver struct {
	Pool       *pool.Pool
	Handlers   map[string]transport.Handler
	MaxRetries int
}

// Result reports the terminal status of one Run call and whether it
// ended in an upgrade (status 101), which callers use to decide
// whether admission release is synchronous or deferred to bridge
// close.
type Result struct {
	Status   int
	Upgraded bool
}

// Run drives the failover loop for one request, dispatching to the
// transport named by transportName. deps is passed to the handler on
// every attempt; the handlers invoke OnReady and hand OnBridgeClosed
// to a bridge only after they have written the 101 response, so an
// attempt that fails before that never touches them.
func (d *Driver) Run(w http.ResponseWriter, r *http.Request, transportName string, deps transport.Deps) Result {
	handler, ok := d.Handlers[transportName]
	if !ok {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return Result{Status: http.StatusBadRequest}
	}

	maxRetries := d.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	tried := make(map[string]bool, maxRetries)
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		backend := d.Pool.Select(tried)
		if backend == nil {
			break
		}
		tried[backend.Identity()] = true

		outcome := handler(w, r, backend.URL, deps)
		if !outcome.Failed {
			d.Pool.ReportSuccess(backend)
			return Result{Status: outcome.Status, Upgraded: outcome.Status == http.StatusSwitchingProtocols}
		}

		d.Pool.ReportFailure(backend)
		lastStatus = outcome.Status
		lastErr = outcome.Err
		if ce := logging.CanLogDebug(); ce != nil {
			ce.Write(zap.String("backend", backend.Identity()), zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}

		if attempt < maxRetries-1 {
			retry.Sleep(attempt+1, r.Context().Done())
		}
	}

	status := http.StatusBadGateway
	http.Error(w, badGatewayBody(lastStatus, lastErr), status)
	return Result{Status: status}
}

func badGatewayBody(lastStatus int, lastErr error) string {
	if lastErr != nil {
		return "upstream unavailable: " + lastErr.Error()
	}
	if lastStatus != 0 {
		return "upstream unavailable: last status " + http.StatusText(lastStatus)
	}
	return "upstream unavailable"
}
