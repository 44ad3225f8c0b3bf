// Package wsproto is the protocol-header utility: parsing and
// building upgrade headers, and encoding/decoding the early-data
// token carried in Sec-WebSocket-Protocol. Grounded on the teacher's
// ws/server.go (early-data via Sec-WebSocket-Protocol) and
// httpLayer/header.go (canonical header handling, golang.org/x/exp
// maps/slices generics).
package wsproto

import (
	"encoding/base64"
	"net/http"
	"strings"

	"golang.org/x/exp/slices"
)

// KnownProtocolTokens are Sec-WebSocket-Protocol values reserved by
// the tunneled protocols themselves; they are never treated as an
// early-data token.
var KnownProtocolTokens = []string{"trojan", "vless", "vmess"}

// IsUpgradeRequest reports whether r carries Connection: upgrade and a
// non-empty Upgrade token.
func IsUpgradeRequest(r *http.Request) bool {
	if r.Header.Get("Upgrade") == "" {
		return false
	}
	for _, v := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "upgrade") {
			return true
		}
	}
	return false
}

// BuildUpstreamHeaders clones r's headers for forwarding upstream:
// Host and Sec-WebSocket-Extensions are always stripped;
// Sec-WebSocket-Protocol is preserved unless consumedEarlyData is
// true (the token was consumed as xhttp early data and must not be
// delivered twice); Connection/Upgrade are forced to the literal
// "Upgrade"/"websocket" pair unless forceWebsocketUpgrade is false,
// in which case the client's own Upgrade value is echoed (the
// httpupgrade transport's behavior).
func BuildUpstreamHeaders(src http.Header, forceWebsocketUpgrade, consumedEarlyData bool) http.Header {
	dst := src.Clone()
	dst.Del("Host")
	dst.Del("Sec-WebSocket-Extensions")
	if consumedEarlyData {
		dst.Del("Sec-WebSocket-Protocol")
	}
	dst.Set("Connection", "Upgrade")
	if forceWebsocketUpgrade {
		dst.Set("Upgrade", "websocket")
	} else if v := src.Get("Upgrade"); v != "" {
		dst.Set("Upgrade", v)
	}
	return dst
}

// CanonicalBase64URL reports whether s round-trips through
// unpadded base64url encoding (the §4.4 canonicality requirement for
// the early-data token).
func CanonicalBase64URL(s string) (decoded []byte, ok bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	if base64.RawURLEncoding.EncodeToString(decoded) != s {
		return nil, false
	}
	return decoded, true
}

// EncodeEarlyData is the inverse of CanonicalBase64URL.
func EncodeEarlyData(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// ExtractEarlyData inspects the single Sec-WebSocket-Protocol token
// (if there is exactly one) and, when it is not a known
// protocol-negotiation token, is canonical base64url, and decodes to
// at most maxLen bytes, returns the decoded payload. ed<=0 never
// consumes the token (§8 boundary).
func ExtractEarlyData(protocolHeader string, maxLen int) (data []byte, consumed bool) {
	if maxLen <= 0 {
		return nil, false
	}
	tokens := strings.Split(protocolHeader, ",")
	var token string
	n := 0
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		n++
		token = t
	}
	if n != 1 {
		return nil, false
	}
	if slices.Contains(KnownProtocolTokens, strings.ToLower(token)) {
		return nil, false
	}
	decoded, ok := CanonicalBase64URL(token)
	if !ok || len(decoded) > maxLen {
		return nil, false
	}
	return decoded, true
}

// SanitizeCloseCode clamps a close code to the valid application
// range [1000,4999], excluding the reserved-for-local-use 1005/1006,
// falling back to 1011 (internal error) otherwise.
func SanitizeCloseCode(code int) int {
	if code >= 1000 && code <= 4999 && code != 1005 && code != 1006 {
		return code
	}
	return 1011
}

// SanitizeCloseReason truncates reason to 123 bytes, the maximum a
// websocket close frame's control-frame payload can carry alongside
// the 2-byte code.
func SanitizeCloseReason(reason string) string {
	const max = 123
	if len(reason) <= max {
		return reason
	}
	return reason[:max]
}

const MaxEarlyDataBytes = 65536
