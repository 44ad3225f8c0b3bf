package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/e1732a364fed/edgebridge/internal/bridge"
	"github.com/e1732a364fed/edgebridge/internal/wsproto"
	"github.com/e1732a364fed/edgebridge/internal/xerr"
)

var xhttpModes = map[string]bool{"auto": true, "packet-up": true}

// XHTTP is the "xhttp" transport handler: adds the mode/ed query
// parameters and early-data-via-Sec-WebSocket-Protocol handling of
// §4.4's xhttp-specific clause on top of the common upgrade path.
func XHTTP(w http.ResponseWriter, r *http.Request, origin *url.URL, deps Deps) Outcome {
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

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = r.Header.Get("x-xhttp-mode")
	}
	if mode != "" && !xhttpModes[mode] {
		writeStatus(w, http.StatusBadRequest)
		return Outcome{Status: http.StatusBadRequest}
	}

	ed, ok := parseEarlyDataHint(r.URL.Query().Get("ed"))
	if !ok {
		writeStatus(w, http.StatusBadRequest)
		return Outcome{Status: http.StatusBadRequest}
	}

	earlyData, consumed := wsproto.ExtractEarlyData(r.Header.Get("Sec-WebSocket-Protocol"), ed)

	upstreamHeaders := wsproto.BuildUpstreamHeaders(r.Header, true, consumed)
	result, err := clientHandshake(r.Context(), origin, r.URL.Path, r.URL.RawQuery, upstreamHeaders, HandshakeTimeout)
	if err != nil {
		return Outcome{Failed: true, Status: result.Status, Err: err}
	}

	hj, ok2 := w.(http.Hijacker)
	if !ok2 {
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

	if consumed {
		if err := result.Conn.WriteFirstMessage(earlyData); err != nil {
			conn.Close()
			result.Conn.Close()
			return Outcome{Failed: true, Err: xerr.New("forward early data failed", err, nil)}
		}
	}

	clientConn := newServerWSConn(conn, rw.Reader)
	br := bridge.New(clientConn, result.Conn, deps.OnBridgeClosed)
	if deps.OnReady != nil {
		deps.OnReady(br.Disconnect())
	}
	go br.Run()

	return Outcome{Status: http.StatusSwitchingProtocols}
}

// parseEarlyDataHint validates the ed query parameter: absent means
// 0 (early data disabled), otherwise a non-negative integer capped at
// wsproto.MaxEarlyDataBytes.
func parseEarlyDataHint(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	if n > wsproto.MaxEarlyDataBytes {
		n = wsproto.MaxEarlyDataBytes
	}
	return n, true
}
