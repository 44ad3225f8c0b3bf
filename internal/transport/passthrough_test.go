package transport_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/transport"
)

func TestPassthroughForwardsRequestAndResponse(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Host") != "" {
			t.Error("Host header must not survive into the request headers sent upstream")
		}
		if r.URL.Path != "/foo" {
			t.Errorf("got path %q, want /foo", r.URL.Path)
		}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("origin-body"))
	}))
	defer origin.Close()

	originURL, _ := url.Parse(origin.URL)
	r := httptest.NewRequest(http.MethodGet, "http://edge.example/foo", nil)
	w := httptest.NewRecorder()

	outcome := transport.Passthrough(w, r, originURL)

	if outcome.Failed {
		t.Fatalf("unexpected failure: %v", outcome.Err)
	}
	if w.Code != http.StatusTeapot {
		t.Fatalf("got status %d, want 418", w.Code)
	}
	if w.Header().Get("X-Upstream") != "yes" {
		t.Fatal("upstream response headers must be copied through")
	}
	if w.Body.String() != "origin-body" {
		t.Fatalf("got body %q", w.Body.String())
	}
}

func TestPassthroughReportsFailureOnDialError(t *testing.T) {
	originURL, _ := url.Parse("http://127.0.0.1:1")
	r := httptest.NewRequest(http.MethodGet, "http://edge.example/foo", nil)
	w := httptest.NewRecorder()

	outcome := transport.Passthrough(w, r, originURL)
	if !outcome.Failed {
		t.Fatal("expected a tagged failure for an unreachable origin")
	}
}
