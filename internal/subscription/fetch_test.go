package subscription_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/subscription"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Host") != "" {
			t.Error("Host header must not be forwarded to the origin's handler view")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("subscription-body"))
	}))
	defer srv.Close()

	res, err := subscription.Fetch(context.Background(), srv.URL, http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("got status %d", res.Status)
	}
	if string(res.Body) != "subscription-body" {
		t.Fatalf("got body %q", res.Body)
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, subscription.MaxBodyBytes+1))
	}))
	defer srv.Close()

	_, err := subscription.Fetch(context.Background(), srv.URL, http.Header{})
	if err == nil {
		t.Fatal("expected a size-limit error for an over-cap body")
	}
	if !strings.Contains(err.Error(), "size limit") {
		t.Fatalf("got error %v, want it to mention the size limit", err)
	}
}

func TestFetchPropagatesDialError(t *testing.T) {
	_, err := subscription.Fetch(context.Background(), "http://127.0.0.1:1", http.Header{})
	if err == nil {
		t.Fatal("expected a dial error against a closed port")
	}
}
