package config_test

import (
	"testing"
	"time"

	"github.com/e1732a364fed/edgebridge/internal/config"
)

func TestResolveDefaults(t *testing.T) {
	cfg := config.Resolve()
	if cfg.DefaultTransport != "xhttp" {
		t.Errorf("got default transport %q, want xhttp", cfg.DefaultTransport)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("got MaxRetries %d, want 3", cfg.MaxRetries)
	}
	if !cfg.RateLimitEnabled {
		t.Error("rate limiting must default to enabled")
	}
	if cfg.Listen != ":8080" {
		t.Errorf("got listen %q, want :8080", cfg.Listen)
	}
}

func TestResolveBackendList(t *testing.T) {
	t.Setenv("BACKEND_LIST", "http://a.example|3, http://b.example|1")
	cfg := config.Resolve()

	if len(cfg.Backends) != 2 {
		t.Fatalf("got %d backends, want 2", len(cfg.Backends))
	}
	if cfg.Backends[0].URL.String() != "http://a.example" || cfg.Backends[0].Weight != 3 {
		t.Errorf("got %+v", cfg.Backends[0])
	}
	if cfg.Backends[1].URL.String() != "http://b.example" || cfg.Backends[1].Weight != 1 {
		t.Errorf("got %+v", cfg.Backends[1])
	}
}

func TestResolveBackendListSkipsMalformedEntries(t *testing.T) {
	t.Setenv("BACKEND_LIST", "not-a-url, http://ok.example")
	cfg := config.Resolve()

	if len(cfg.Backends) != 1 {
		t.Fatalf("got %d backends, want 1 (malformed entry skipped)", len(cfg.Backends))
	}
	if cfg.Backends[0].URL.String() != "http://ok.example" {
		t.Errorf("got %+v", cfg.Backends[0])
	}
}

func TestResolveBackendURLFallback(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://single.example")
	cfg := config.Resolve()

	if len(cfg.Backends) != 1 || cfg.Backends[0].URL.String() != "http://single.example" {
		t.Fatalf("got %+v", cfg.Backends)
	}
}

func TestResolveMalformedHealthCheckIntervalFallsBackToDefault(t *testing.T) {
	t.Setenv("BACKEND_HEALTH_CHECK_INTERVAL", "not-a-number")
	cfg := config.Resolve()
	if cfg.HealthCheckInterval != 30*time.Second {
		t.Errorf("got %s, want default 30s", cfg.HealthCheckInterval)
	}
}

func TestResolveUUIDMaxConnectionsZeroIsHonored(t *testing.T) {
	t.Setenv("UUID_MAX_CONNECTIONS", "0")
	cfg := config.Resolve()
	if cfg.IdentityMaxConns != 0 {
		t.Errorf("got %d, want 0 (explicit disable)", cfg.IdentityMaxConns)
	}
}

func TestResolveBoolEnvMalformedFallsBackToDefault(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "not-a-bool")
	cfg := config.Resolve()
	if !cfg.RateLimitEnabled {
		t.Error("malformed RATE_LIMIT_ENABLED must fall back to the documented default (true)")
	}
}

func TestFingerprintStableAndSensitiveToBackends(t *testing.T) {
	t.Setenv("BACKEND_LIST", "http://a.example|1")
	cfgA := config.Resolve()
	fpA1 := cfgA.Fingerprint()
	fpA2 := cfgA.Fingerprint()
	if fpA1 != fpA2 {
		t.Fatal("fingerprint must be deterministic for the same config value")
	}

	t.Setenv("BACKEND_LIST", "http://b.example|1")
	cfgB := config.Resolve()
	if cfgB.Fingerprint() == fpA1 {
		t.Fatal("a different backend list must produce a different fingerprint")
	}
}
