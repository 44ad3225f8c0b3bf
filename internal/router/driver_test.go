package router_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/pool"
	"github.com/e1732a364fed/edgebridge/internal/router"
	"github.com/e1732a364fed/edgebridge/internal/transport"
)

func newPool(t *testing.T, urls ...string) *pool.Pool {
	specs := make([]pool.BackendSpec, len(urls))
	for i, u := range urls {
		specs[i] = pool.BackendSpec{URL: mustParseURL(t, u), Weight: 1}
	}
	return pool.New(specs, true, 0)
}

func TestDriverRunSucceedsOnFirstAttempt(t *testing.T) {
	p := newPool(t, "http://a.example")
	calls := 0
	handlers := map[string]transport.Handler{
		router.TransportWS: func(w http.ResponseWriter, r *http.Request, origin *url.URL, deps transport.Deps) transport.Outcome {
			calls++
			return transport.Outcome{Status: http.StatusSwitchingProtocols}
		},
	}
	d := &router.Driver{Pool: p, Handlers: handlers, MaxRetries: 3}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	result := d.Run(w, r, router.TransportWS, transport.Deps{})

	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if !result.Upgraded {
		t.Fatal("expected Upgraded true for a 101 outcome")
	}
}

func TestDriverRunRetriesDifferentBackendOnFailure(t *testing.T) {
	p := newPool(t, "http://a.example", "http://b.example")
	var seen []string
	handlers := map[string]transport.Handler{
		router.TransportWS: func(w http.ResponseWriter, r *http.Request, origin *url.URL, deps transport.Deps) transport.Outcome {
			seen = append(seen, origin.String())
			if origin.String() == "http://a.example" {
				return transport.Outcome{Failed: true, Status: http.StatusBadGateway}
			}
			return transport.Outcome{Status: http.StatusSwitchingProtocols}
		},
	}
	d := &router.Driver{Pool: p, Handlers: handlers, MaxRetries: 2}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	result := d.Run(w, r, router.TransportWS, transport.Deps{})

	if len(seen) != 2 {
		t.Fatalf("expected 2 attempts against distinct backends, got %v", seen)
	}
	if seen[0] == seen[1] {
		t.Fatal("second attempt must exclude the failed backend")
	}
	if !result.Upgraded {
		t.Fatal("expected eventual success to report Upgraded")
	}
}

func TestDriverRunExhaustsRetriesAndReturnsBadGateway(t *testing.T) {
	p := newPool(t, "http://a.example")
	handlers := map[string]transport.Handler{
		router.TransportWS: func(w http.ResponseWriter, r *http.Request, origin *url.URL, deps transport.Deps) transport.Outcome {
			return transport.Outcome{Failed: true, Status: http.StatusBadGateway}
		},
	}
	d := &router.Driver{Pool: p, Handlers: handlers, MaxRetries: 2}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	result := d.Run(w, r, router.TransportWS, transport.Deps{})

	if result.Status != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", result.Status)
	}
	if w.Code != http.StatusBadGateway {
		t.Fatalf("recorder got %d, want 502", w.Code)
	}
}

func TestDriverRunUnsupportedTransport(t *testing.T) {
	p := newPool(t, "http://a.example")
	d := &router.Driver{Pool: p, Handlers: map[string]transport.Handler{}, MaxRetries: 1}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	result := d.Run(w, r, router.TransportWS, transport.Deps{})

	if result.Status != http.StatusBadRequest {
		t.Fatalf("got %d, want 400 for an unregistered transport", result.Status)
	}
}
