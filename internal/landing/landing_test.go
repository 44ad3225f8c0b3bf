package landing_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/config"
	"github.com/e1732a364fed/edgebridge/internal/landing"
)

func TestHandlerServesHTMLWhenSubscriptionDisabled(t *testing.T) {
	cfg := config.Config{}
	w := httptest.NewRecorder()
	landing.Handler(cfg)(w, httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("got content-type %q, want text/html", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "edgebridge") {
		t.Fatal("expected the static landing page body")
	}
}

func TestHandlerListsTargetsWhenSubscriptionEnabled(t *testing.T) {
	cfg := config.Config{Subscription: config.SubscriptionConfig{
		Enabled: true,
		Targets: []config.Target{{Name: "alpha", BasePath: "/feed"}},
	}}
	w := httptest.NewRecorder()
	landing.Handler(cfg)(w, httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(w.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("got content-type %q, want text/plain", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "alpha") {
		t.Fatalf("expected target name in body, got %q", w.Body.String())
	}
}

func TestHandlerNotesEmptyTargetsWhenSubscriptionEnabled(t *testing.T) {
	cfg := config.Config{Subscription: config.SubscriptionConfig{Enabled: true}}
	w := httptest.NewRecorder()
	landing.Handler(cfg)(w, httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(w.Body.String(), "no targets configured") {
		t.Fatalf("expected a no-targets note, got %q", w.Body.String())
	}
}
