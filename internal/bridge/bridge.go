// Package bridge implements the duplex socket bridge: given two
// already-accepted net.Conn values (a client-side socket and the
// upstream socket obtained by a transport handler), it relays bytes
// in both directions until either side closes, then performs a
// single idempotent teardown.
//
// Grounded on netLayer/relay.go's Relay(): each direction runs in its
// own goroutine, and whichever finishes first closes both ends — the
// bridge never waits for the second direction to finish on its own,
// since nothing will close it from the other end until teardown runs.
package bridge

import (
	"io"
	"net"
	"sync"

	"github.com/e1732a364fed/edgebridge/internal/logging"
	"github.com/e1732a364fed/edgebridge/internal/wsproto"
	"go.uber.org/zap"
)

// Disconnector closes both sockets of a bridge with a given close
// code/reason. Passed to an onReady callback so admission control can
// forcibly terminate a superseded session.
type Disconnector func(code int, reason string)

// Closer, when a transport's socket type implements it, lets the
// bridge deliver a sanitized websocket close code/reason instead of a
// bare Close().
type Closer interface {
	CloseWithCode(code int, reason string) error
}

// Bridge relays client <-> upstream until either closes, then tears
// down exactly once.
type Bridge struct {
	client, upstream net.Conn

	once     sync.Once
	onClosed func()
}

// New constructs a Bridge. onClosed, if non-nil, fires exactly once
// when the bridge tears down for any reason.
func New(client, upstream net.Conn, onClosed func()) *Bridge {
	return &Bridge{client: client, upstream: upstream, onClosed: onClosed}
}

// Run starts the two relay goroutines and blocks until the bridge
// tears down. A real net.Conn closes one direction at a time (e.g. the
// upstream sends FIN while the client keeps writing), so Run tears
// down as soon as the first direction's copy loop ends rather than
// waiting for both — the other direction's goroutine is still blocked
// in Read/Write at that point, and teardown's Close calls are what
// unblock it. Safe to call from its own goroutine if the caller wants
// Run to be async relative to the HTTP handler returning.
func (br *Bridge) Run() {
	done := make(chan struct{}, 2)

	go func() {
		br.copyDirection(br.upstream, br.client)
		done <- struct{}{}
	}()
	go func() {
		br.copyDirection(br.client, br.upstream)
		done <- struct{}{}
	}()

	<-done
	br.teardown(1000, "")
}

func (br *Bridge) copyDirection(dst io.Writer, src io.Reader) {
	_, err := io.Copy(dst, src)
	if err != nil {
		if ce := logging.CanLogDebug(); ce != nil {
			ce.Write(zap.Error(err))
		}
	}
}

// Disconnect returns a Disconnector bound to this bridge, suitable
// for an onReady(disconnect) callback.
func (br *Bridge) Disconnect() Disconnector {
	return br.teardown
}

// teardown closes both sockets (with a sanitized close code/reason
// when the socket supports it) and fires onClosed exactly once.
func (br *Bridge) teardown(code int, reason string) {
	br.once.Do(func() {
		code = wsproto.SanitizeCloseCode(code)
		reason = wsproto.SanitizeCloseReason(reason)
		closeConn(br.client, code, reason)
		closeConn(br.upstream, code, reason)
		if br.onClosed != nil {
			func() {
				defer func() { recover() }()
				br.onClosed()
			}()
		}
	})
}

func closeConn(c net.Conn, code int, reason string) {
	if c == nil {
		return
	}
	if cc, ok := c.(Closer); ok {
		cc.CloseWithCode(code, reason)
		return
	}
	c.Close()
}
