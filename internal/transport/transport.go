// Package transport implements the per-transport upgrade handlers
// (ws, xhttp, httpupgrade) described in spec §4.4, plus the shared
// HTTP passthrough path they all fall back to for non-upgrade
// requests.
package transport

import (
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/e1732a364fed/edgebridge/internal/bridge"
)

// websocketMagicGUID is the fixed RFC 6455 handshake constant used to
// derive Sec-WebSocket-Accept from the client's Sec-WebSocket-Key.
const websocketMagicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

func acceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte(websocketMagicGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Deps carries the per-request admission wiring a handler needs to
// hook into the bridge lifecycle: OnReady installs a kill switch (see
// spec §9's design note) before the handler commits to bridging;
// OnBridgeClosed fires once the bridge tears down, regardless of
// which side closed first.
type Deps struct {
	OnReady        func(disconnect bridge.Disconnector)
	OnBridgeClosed func()
}

// Outcome reports what a handler did. Failed corresponds to the
// spec's internal x-cf-xray-backend-failure marker: it tells the
// failover driver this attempt should be retried against a different
// backend rather than treated as a final response. A handler that
// sets Failed must not have written anything to the ResponseWriter.
type Outcome struct {
	Failed bool
	Status int
	Err    error
}

// Handler is the common shape of the three transport handlers.
type Handler func(w http.ResponseWriter, r *http.Request, origin *url.URL, deps Deps) Outcome

func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}
