package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/e1732a364fed/edgebridge/internal/xerr"
)

const HandshakeTimeout = 5 * time.Second

// HandshakeResult carries the outcome of one upstream handshake
// attempt. Status is the raw HTTP status the upstream returned (0 on
// connect/transport failure before any status line was read).
type HandshakeResult struct {
	Conn   *wsConn
	Status int
}

// clientHandshake performs exactly one upgrade attempt against
// origin+path with the given request headers, within timeout. It
// does not retry — the failover driver (router package) owns retry
// policy and backoff.
func clientHandshake(ctx context.Context, origin *url.URL, path, rawQuery string, headers http.Header, timeout time.Duration) (HandshakeResult, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialOrigin(dialCtx, origin)
	if err != nil {
		return HandshakeResult{}, xerr.New("dial upstream failed", err, origin.String())
	}
	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{})

	reqURL := &url.URL{Path: path, RawQuery: rawQuery}
	req, err := http.NewRequest(http.MethodGet, reqURL.String(), nil)
	if err != nil {
		conn.Close()
		return HandshakeResult{}, err
	}
	req.Header = headers
	req.Host = origin.Host
	req.URL.Scheme = origin.Scheme
	req.URL.Host = origin.Host

	if err := req.Write(conn); err != nil {
		conn.Close()
		return HandshakeResult{}, xerr.New("write upgrade request failed", err, nil)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return HandshakeResult{}, xerr.New("read upgrade response failed", err, nil)
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		drainAndClose(resp, conn)
		return HandshakeResult{Status: resp.StatusCode}, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	return HandshakeResult{Conn: newClientWSConn(conn, resp.Body), Status: resp.StatusCode}, nil
}

func drainAndClose(resp *http.Response, conn net.Conn) {
	if resp.Body != nil {
		resp.Body.Close()
	}
	conn.Close()
}

// IsRetryableStatus matches §4.4's retry classification: 408, 429 or
// >=500 on a non-101 handshake response is retryable; everything else
// (including a missing status, i.e. a connect/timeout failure, which
// the failover driver always retries regardless) is terminal for the
// attempt but governed by the caller's own retry loop.
func IsRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}
