// Package server assembles every component package into the single
// net/http.Handler described by §2's control flow: ingress ->
// observability/landing short-circuit -> optional subscription
// routing -> transport resolution -> path rewrite -> IP admission ->
// identity admission -> upstream selection+upgrade with failover ->
// duplex bridge -> release admissions on close.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/e1732a364fed/edgebridge/internal/bridge"
	"github.com/e1732a364fed/edgebridge/internal/config"
	"github.com/e1732a364fed/edgebridge/internal/identity"
	"github.com/e1732a364fed/edgebridge/internal/ingress"
	"github.com/e1732a364fed/edgebridge/internal/landing"
	"github.com/e1732a364fed/edgebridge/internal/logging"
	"github.com/e1732a364fed/edgebridge/internal/observability"
	"github.com/e1732a364fed/edgebridge/internal/pool"
	"github.com/e1732a364fed/edgebridge/internal/ratelimit"
	"github.com/e1732a364fed/edgebridge/internal/registry"
	"github.com/e1732a364fed/edgebridge/internal/router"
	"github.com/e1732a364fed/edgebridge/internal/subscription"
	"github.com/e1732a364fed/edgebridge/internal/transport"
	"go.uber.org/zap"
)

// Server is the top-level HTTP handler.
type Server struct {
	cfg      config.Config
	registry *registry.Registry
	geo      *subscription.GeoTagger
}

// New builds a Server from a resolved configuration.
func New(cfg config.Config, geo *subscription.GeoTagger) *Server {
	return &Server{cfg: cfg, registry: registry.New(), geo: geo}
}

func (s *Server) instance() *registry.Instance {
	fp := s.cfg.Fingerprint()
	return s.registry.GetOrCreate(fp, func() *registry.Instance {
		p := pool.New(s.cfg.Backends, s.cfg.StickySession, s.cfg.HealthCheckInterval)

		var rl *ratelimit.Limiter
		if s.cfg.RateLimitEnabled {
			rl = ratelimit.New(ratelimit.Config{MaxConnPerIP: s.cfg.MaxConnPerIP, MaxConnPerMin: s.cfg.MaxConnPerMin})
		}

		idm := identity.New(s.cfg.IdentityMaxConns)
		idm.RunSweeper(time.Minute)

		cache := subscription.New(s.cfg.Subscription.CacheTTL, 256, 20<<20)

		return &registry.Instance{Pool: p, RateLimit: rl, Identity: idm, Subscribe: cache}
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/" || r.URL.Path == "/index.html":
		landing.Handler(s.cfg)(w, r)
		return
	case r.URL.Path == "/health":
		s.serveHealth(w, r)
		return
	case r.URL.Path == "/status":
		if !s.cfg.Debug {
			http.NotFound(w, r)
			return
		}
		observability.Status(s.cfg)(w, r)
		return
	}

	if s.cfg.Subscription.Enabled {
		if _, _, ok := subscription.ParseRoute(r.URL.Path); ok {
			s.serveSubscription(w, r)
			return
		}
	}

	s.serveTransportProxy(w, r)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	inst := s.instance()
	observability.Health(inst.Pool, s.cfg.HideBackendURLs, time.Now().Unix())(w, r)
}

func (s *Server) serveSubscription(w http.ResponseWriter, r *http.Request) {
	inst := s.instance()
	p := &subscription.Proxy{
		Targets:        s.cfg.Subscription.Targets,
		Cache:          inst.Subscribe,
		PreserveDomain: s.cfg.Subscription.PreserveDomain,
		Transform:      s.cfg.Subscription.Transform,
		Geo:            s.geo,
	}
	p.ServeHTTP(w, r)
}

var handlers = map[string]transport.Handler{
	router.TransportWS:          transport.WS,
	router.TransportXHTTP:       transport.XHTTP,
	router.TransportHTTPUpgrade: transport.HTTPUpgrade,
}

func (s *Server) serveTransportProxy(w http.ResponseWriter, r *http.Request) {
	inst := s.instance()

	transportName, rewrittenPath := router.ResolveTransport(r, s.cfg.DefaultTransport)
	r.URL.Path = rewrittenPath
	router.StripSelectors(r)

	clientIP := ingress.ClientIP(r)
	if inst.RateLimit != nil {
		if !inst.RateLimit.CheckConnectionAllowed(clientIP) {
			retryAfter := inst.RateLimit.GetRetryAfterSeconds(clientIP)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
	}

	identityID := extractIdentity(r)
	identityActive := identityID != "" && inst.Identity != nil && inst.Identity.Max > 0
	if identityActive {
		if !inst.Identity.CheckConnectionAllowed(identityID, clientIP) {
			w.Header().Set("x-websocket-close-code", "1008")
			http.Error(w, "identity connection limit reached", http.StatusForbidden)
			return
		}
	}

	connID := nextConnID()
	if inst.RateLimit != nil {
		inst.RateLimit.RegisterConnection(clientIP, connID)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if inst.RateLimit != nil {
			inst.RateLimit.UnregisterConnection(clientIP, connID)
		}
		if identityActive {
			inst.Identity.UnregisterConnection(identityID, connID)
		}
	}

	deps := transport.Deps{
		OnBridgeClosed: release,
	}
	if identityActive {
		deps.OnReady = func(disconnect bridge.Disconnector) {
			inst.Identity.RegisterConnection(identityID, clientIP, connID, identity.Disconnector(disconnect))
		}
	}

	driver := &router.Driver{Pool: inst.Pool, Handlers: handlers, MaxRetries: s.cfg.MaxRetries}
	result := driver.Run(w, r, transportName, deps)

	if !result.Upgraded {
		release()
	}

	if ce := logging.CanLogInfo(); ce != nil {
		ce.Write(zap.String("path", r.URL.Path), zap.String("transport", transportName),
			zap.Int("status", result.Status), zap.String("ip", clientIP))
	}
}
