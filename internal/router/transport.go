// Package router resolves which transport handles a request and
// drives the upgrade/failover loop across the backend pool, per §4.1
// and §4.3. Grounded on the teacher's netLayer dispatch (routing a
// connection to the right protocol layer by sniffing/listening
// config) adapted from per-protocol dispatch to per-request dispatch.
package router

import (
	"net/http"
	"strings"
)

const (
	TransportWS          = "ws"
	TransportXHTTP        = "xhttp"
	TransportHTTPUpgrade  = "httpupgrade"

	QueryParam  = "transport"
	HeaderParam = "x-transport-type"
)

var validTransports = map[string]bool{
	TransportWS:         true,
	TransportXHTTP:       true,
	TransportHTTPUpgrade: true,
}

// ResolveTransport derives the transport and rewritten request path
// for r, in the strict order required by §4.1: query parameter,
// header, first path segment, then defaultTransport (falling back to
// xhttp if defaultTransport itself is unrecognized). A recognized
// transport name occupying the leading path segment is stripped from
// the returned path whenever it's present, regardless of which of the
// three steps actually picked the transport — a client is free to
// send /ws/foo?transport=xhttp, and the upstream must still see /foo.
func ResolveTransport(r *http.Request, defaultTransport string) (transport string, rewrittenPath string) {
	path := r.URL.Path

	seg, rest, segOK := firstSegment(path)
	segOK = segOK && validTransports[seg]
	strippedPath := path
	if segOK {
		strippedPath = rest
	}

	if v := r.URL.Query().Get(QueryParam); validTransports[v] {
		return v, strippedPath
	}
	if v := r.Header.Get(HeaderParam); validTransports[v] {
		return v, strippedPath
	}
	if segOK {
		return seg, strippedPath
	}
	if validTransports[defaultTransport] {
		return defaultTransport, path
	}
	return TransportXHTTP, path
}

// firstSegment splits a leading "/seg" off path, returning the
// remainder with the prefix stripped: "/ws/foo/bar" -> ("ws",
// "/foo/bar"); "/ws" -> ("ws", "/"). ok is false for a path with no
// non-empty first segment (e.g. "/" or "").
func firstSegment(path string) (seg, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", path, false
	}
	i := strings.IndexByte(trimmed, '/')
	if i < 0 {
		return trimmed, "/", true
	}
	return trimmed[:i], trimmed[i:], true
}

// StripSelectors removes the transport query parameter and
// x-transport-type header from a request before it is forwarded
// upstream — the upstream must never see the proxy's own routing
// selectors.
func StripSelectors(r *http.Request) {
	if r.URL.Query().Has(QueryParam) {
		q := r.URL.Query()
		q.Del(QueryParam)
		r.URL.RawQuery = q.Encode()
	}
	r.Header.Del(HeaderParam)
}
