// Command edgebridge runs the transport-aware reverse proxy: it
// terminates the edge-facing HTTP/websocket-upgrade handshake and
// bridges accepted connections to a managed pool of upstream origins.
package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/e1732a364fed/edgebridge/internal/config"
	"github.com/e1732a364fed/edgebridge/internal/ingress"
	"github.com/e1732a364fed/edgebridge/internal/logging"
	"github.com/e1732a364fed/edgebridge/internal/server"
	"github.com/e1732a364fed/edgebridge/internal/subscription"
)

func main() {
	var (
		listenFlag    string
		configFile    string
		logLevel      int
		logFile       string
		geoipFile     string
		useProxyProto bool
	)

	flag.StringVar(&listenFlag, "listen", "", "listen address, overrides LISTEN_ADDR/documented default")
	flag.StringVar(&configFile, "config", "", "optional TOML config file, layered under environment variables")
	flag.IntVar(&logLevel, "ll", logging.DefaultLevel, "log level: 0=debug,1=info,2=warn,3=error,4=fatal")
	flag.StringVar(&logFile, "lf", "", "rotating log file path; empty disables file logging")
	flag.StringVar(&geoipFile, "geoip", "", "optional MaxMind GeoIP database for subscription diagnostics")
	flag.BoolVar(&useProxyProto, "proxy-protocol", false, "wrap the listener to accept PROXY protocol headers")
	flag.Parse()

	logging.Level = logLevel
	logging.Init(logging.Options{FilePath: logFile})
	defer logging.Logger.Sync()

	cfg := config.Resolve()
	cfg = config.ApplyFile(cfg, configFile)
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}

	if len(cfg.Backends) == 0 {
		logging.Warn("no backends configured; all upgrade/passthrough requests will 502")
	}

	geo := subscription.OpenGeoTagger(geoipFile)
	defer geo.Close()

	srv := server.New(cfg, geo)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logging.Logger.Fatal("listen failed", zap.String("addr", cfg.Listen), zap.Error(err))
	}
	ln = ingress.WrapProxyProtocol(ln, useProxyProto)

	httpServer := &http.Server{Handler: srv}

	go func() {
		logging.Info("edgebridge listening", zap.String("addr", cfg.Listen), zap.Int("backends", len(cfg.Backends)))
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("serve failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logging.Info("shutting down")
	_ = httpServer.Close()
}
