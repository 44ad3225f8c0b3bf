package subscription_test

import (
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/config"
	"github.com/e1732a364fed/edgebridge/internal/subscription"
)

func TestParseRouteBareSub(t *testing.T) {
	service, token, ok := subscription.ParseRoute("/sub/abc123")
	if !ok || service != "" || token != "abc123" {
		t.Fatalf("got (%q,%q,%v)", service, token, ok)
	}
}

func TestParseRouteServiceScoped(t *testing.T) {
	service, token, ok := subscription.ParseRoute("/myservice/sub/abc123")
	if !ok || service != "myservice" || token != "abc123" {
		t.Fatalf("got (%q,%q,%v)", service, token, ok)
	}
}

func TestParseRouteTokenWithSlashes(t *testing.T) {
	_, token, ok := subscription.ParseRoute("/sub/part1/part2")
	if !ok || token != "part1/part2" {
		t.Fatalf("got token %q, ok %v", token, ok)
	}
}

func TestParseRouteRejectsNonSubPaths(t *testing.T) {
	if _, _, ok := subscription.ParseRoute("/ws/foo"); ok {
		t.Fatal("a non-/sub/ path must not parse as a subscription route")
	}
	if _, _, ok := subscription.ParseRoute("/"); ok {
		t.Fatal("root path must not parse")
	}
}

func TestParseRouteDecodesPercentEncoding(t *testing.T) {
	_, token, ok := subscription.ParseRoute("/sub/a%2Fb")
	if !ok || token != "a/b" {
		t.Fatalf("got token %q, ok %v", token, ok)
	}
}

func TestResolveTargetCaseInsensitive(t *testing.T) {
	targets := []config.Target{
		{Name: "alpha", Host: "a.example"},
		{Name: "beta", Host: "b.example"},
	}
	got, ok := subscription.ResolveTarget(targets, "Beta")
	if !ok || got.Host != "b.example" {
		t.Fatalf("got %+v, ok %v", got, ok)
	}
}

func TestResolveTargetFallsBackToFirst(t *testing.T) {
	targets := []config.Target{
		{Name: "alpha", Host: "a.example"},
		{Name: "beta", Host: "b.example"},
	}
	got, ok := subscription.ResolveTarget(targets, "unknown")
	if !ok || got.Host != "a.example" {
		t.Fatalf("got %+v, ok %v, want fallback to first target", got, ok)
	}

	got, ok = subscription.ResolveTarget(targets, "")
	if !ok || got.Host != "a.example" {
		t.Fatalf("got %+v, ok %v, want fallback to first target for empty name", got, ok)
	}
}

func TestResolveTargetEmptyList(t *testing.T) {
	if _, ok := subscription.ResolveTarget(nil, "anything"); ok {
		t.Fatal("an empty target list must report no match")
	}
}
