package transport

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/e1732a364fed/edgebridge/internal/bridge"
	"github.com/e1732a364fed/edgebridge/internal/wsproto"
	"github.com/e1732a364fed/edgebridge/internal/xerr"
)

// WS is the "ws" transport handler: forces Connection: Upgrade /
// Upgrade: websocket against the upstream regardless of what the
// client's own Upgrade token was, per §4.4.
func WS(w http.ResponseWriter, r *http.Request, origin *url.URL, deps Deps) Outcome {
	if !wsproto.IsUpgradeRequest(r) {
		return Passthrough(w, r, origin)
	}
	if r.Method != http.MethodGet {
		writeStatus(w, http.StatusBadRequest)
		return Outcome{Status: http.StatusBadRequest}
	}
	clientKey := r.Header.Get("Sec-WebSocket-Key")
	if clientKey == "" {
		writeStatus(w, http.StatusBadRequest)
		return Outcome{Status: http.StatusBadRequest}
	}

	upstreamHeaders := wsproto.BuildUpstreamHeaders(r.Header, true, false)
	result, err := clientHandshake(r.Context(), origin, r.URL.Path, r.URL.RawQuery, upstreamHeaders, HandshakeTimeout)
	if err != nil {
		return Outcome{Failed: true, Status: result.Status, Err: err}
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		result.Conn.Close()
		return Outcome{Failed: true, Err: xerr.New("response writer does not support hijacking", nil, nil)}
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		result.Conn.Close()
		return Outcome{Failed: true, Err: xerr.New("hijack failed", err, nil)}
	}

	resp := fmt.Sprintf("HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: %s\r\n\r\n", acceptKey(clientKey))
	if _, err := rw.WriteString(resp); err != nil || rw.Flush() != nil {
		conn.Close()
		result.Conn.Close()
		return Outcome{Failed: true, Err: xerr.New("write 101 response failed", err, nil)}
	}

	clientConn := newServerWSConn(conn, rw.Reader)
	br := bridge.New(clientConn, result.Conn, deps.OnBridgeClosed)
	if deps.OnReady != nil {
		deps.OnReady(br.Disconnect())
	}
	go br.Run()

	return Outcome{Status: http.StatusSwitchingProtocols}
}
