package ingress_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/ingress"
)

func TestClientIPPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("x-real-ip", "3.3.3.3")
	r.Header.Set("x-forwarded-for", "2.2.2.2, 9.9.9.9")
	r.Header.Set("cf-connecting-ip", "1.1.1.1")

	if got := ingress.ClientIP(r); got != "1.1.1.1" {
		t.Fatalf("got %q, want cf-connecting-ip to win", got)
	}

	r.Header.Del("cf-connecting-ip")
	if got := ingress.ClientIP(r); got != "2.2.2.2" {
		t.Fatalf("got %q, want first x-forwarded-for hop", got)
	}

	r.Header.Del("x-forwarded-for")
	if got := ingress.ClientIP(r); got != "3.3.3.3" {
		t.Fatalf("got %q, want x-real-ip", got)
	}

	r.Header.Del("x-real-ip")
	if got := ingress.ClientIP(r); got != "unknown" {
		t.Fatalf("got %q, want unknown with no headers set", got)
	}
}
