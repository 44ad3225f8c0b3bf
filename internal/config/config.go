// Package config resolves the process configuration from environment
// variables (§6), with an optional TOML override file underneath
// (the teacher's VSConf layering in machine/conf.go), into a typed
// Config record built once at startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"github.com/e1732a364fed/edgebridge/internal/logging"
	"github.com/e1732a364fed/edgebridge/internal/pool"
)

// Config is the fully resolved, validated process configuration.
type Config struct {
	Backends            []pool.BackendSpec
	HealthCheckInterval time.Duration
	StickySession        bool
	MaxRetries           int

	RateLimitEnabled bool
	MaxConnPerIP     int
	MaxConnPerMin    int

	IdentityMaxConns int

	Subscription SubscriptionConfig

	DefaultTransport string
	Debug            bool
	HideBackendURLs  bool
	Listen           string
}

// SubscriptionConfig holds the subscription-proxy knobs from §6/§4.8.
type SubscriptionConfig struct {
	Enabled        bool
	PreserveDomain bool
	Transform      bool
	CacheTTL       time.Duration
	Targets        []Target
}

// Target is one resolved subscription target (§3).
type Target struct {
	Name     string
	Scheme   string
	Host     string
	Port     int
	BasePath string
}

const (
	defaultHealthCheckInterval = 30 * time.Second
	defaultMaxRetries          = 3
	defaultMaxConnPerIP        = 10
	defaultMaxConnPerMin       = 60
	defaultCacheTTL            = 300 * time.Second
	defaultTransport           = "xhttp"
	defaultListen              = ":8080"
)

// Resolve builds a Config from the environment, applying the
// documented defaults and logging (not aborting) on any malformed
// value, per §6's "missing/malformed values fall back to documented
// defaults without aborting".
func Resolve() Config {
	cfg := Config{
		HealthCheckInterval: defaultHealthCheckInterval,
		MaxRetries:          defaultMaxRetries,
		MaxConnPerIP:        defaultMaxConnPerIP,
		MaxConnPerMin:       defaultMaxConnPerMin,
		DefaultTransport:    defaultTransport,
		HideBackendURLs:     true,
		Listen:              defaultListen,
		Subscription: SubscriptionConfig{
			CacheTTL: defaultCacheTTL,
		},
	}

	cfg.Backends = resolveBackends()

	if v := os.Getenv("BACKEND_HEALTH_CHECK_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.HealthCheckInterval = time.Duration(ms) * time.Millisecond
		} else {
			warnf("BACKEND_HEALTH_CHECK_INTERVAL malformed, using default: %q", v)
		}
	}

	cfg.StickySession = envBool("BACKEND_STICKY_SESSION", false)

	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.MaxRetries = n
		} else {
			warnf("MAX_RETRIES malformed, using default: %q", v)
		}
	}

	cfg.RateLimitEnabled = envBool("RATE_LIMIT_ENABLED", true)
	cfg.MaxConnPerIP = envPositiveInt("RATE_LIMIT_MAX_CONN_PER_IP", defaultMaxConnPerIP)
	cfg.MaxConnPerMin = envPositiveInt("RATE_LIMIT_MAX_CONN_PER_MIN", defaultMaxConnPerMin)

	if v := os.Getenv("UUID_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.IdentityMaxConns = n
		} else {
			warnf("UUID_MAX_CONNECTIONS malformed, using default: %q", v)
		}
	}

	cfg.Subscription.Enabled = envBool("SUBSCRIPTION_ENABLED", false)
	cfg.Subscription.PreserveDomain = envBool("SUBSCRIPTION_PRESERVE_DOMAIN", false)
	cfg.Subscription.Transform = envBool("SUBSCRIPTION_TRANSFORM", false)
	if v := os.Getenv("SUBSCRIPTION_CACHE_TTL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Subscription.CacheTTL = time.Duration(ms) * time.Millisecond
		} else {
			warnf("SUBSCRIPTION_CACHE_TTL_MS malformed, using default: %q", v)
		}
	}
	cfg.Subscription.Targets = resolveSubscriptionTargets()

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.DefaultTransport = strings.ToLower(v)
	}
	cfg.Debug = envBool("DEBUG", false)
	cfg.HideBackendURLs = envBool("HIDE_BACKEND_URLS", true)

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Listen = v
	}

	return cfg
}

func resolveBackends() []pool.BackendSpec {
	var specs []pool.BackendSpec

	if v := os.Getenv("BACKEND_LIST"); v != "" {
		for _, entry := range strings.Split(v, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			spec, err := parseBackendEntry(entry)
			if err != nil {
				warnf("skipping malformed BACKEND_LIST entry %q: %v", entry, err)
				continue
			}
			specs = append(specs, spec)
		}
	}

	if len(specs) == 0 {
		if v := os.Getenv("BACKEND_URL"); v != "" {
			spec, err := parseBackendEntry(v)
			if err != nil {
				warnf("BACKEND_URL malformed: %v", err)
			} else {
				specs = append(specs, spec)
			}
		}
	}

	return specs
}

func parseBackendEntry(entry string) (pool.BackendSpec, error) {
	raw, weightStr, hasWeight := strings.Cut(entry, "|")
	weight := 1
	if hasWeight {
		n, err := strconv.Atoi(strings.TrimSpace(weightStr))
		if err != nil || n < 1 {
			warnf("backend %q has invalid weight %q, using 1", strings.TrimSpace(raw), weightStr)
			weight = 1
		} else {
			weight = n
		}
	}

	raw = strings.TrimSpace(raw)
	if !govalidator.IsURL(raw) {
		return pool.BackendSpec{}, fmt.Errorf("not a valid URL: %q", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return pool.BackendSpec{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return pool.BackendSpec{}, fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	return pool.BackendSpec{URL: u, Weight: weight}, nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		warnf("%s malformed, using default: %q", key, v)
		return def
	}
	return b
}

func envPositiveInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		warnf("%s malformed, using default: %q", key, v)
		return def
	}
	return n
}

func warnf(format string, args ...any) {
	logging.Warn(fmt.Sprintf(format, args...))
}
