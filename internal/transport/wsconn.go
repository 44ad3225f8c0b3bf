package transport

import (
	"io"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/e1732a364fed/edgebridge/internal/xerr"
)

// wsConn wraps an accepted/dialed net.Conn so Read/Write carry plain
// binary websocket payload bytes rather than raw frames — the proxy
// only ever forwards opaque tunneled-protocol bytes, so frame
// boundaries are discarded on read and re-applied on write.
//
// Adapted from the teacher's ws/conn.go: reads are driven frame by
// frame via wsutil.Reader.NextFrame (never io.ReadAll, since a frame
// may declare an arbitrarily large length) and writes go through a
// wsutil.Writer that is flushed on every call.
type wsConn struct {
	net.Conn
	remainLenForLastFrame int64
	side                  ws.State

	r *wsutil.Reader
	w *wsutil.Writer
}

// newServerWSConn wraps the client-side connection after this process
// has itself sent the 101 response (over a hijacked net/http
// connection). rawReader must yield any bytes net/http's hijack
// buffer had already read past the request headers before falling
// through to the raw connection; pass underlying directly when there
// is none.
func newServerWSConn(underlying net.Conn, rawReader io.Reader) *wsConn {
	if rawReader == nil {
		rawReader = underlying
	}
	r := wsutil.NewReader(rawReader, ws.StateServerSide)
	r.OnIntermediate = wsutil.ControlFrameHandler(underlying, ws.StateServerSide)
	return &wsConn{
		Conn: underlying,
		side: ws.StateServerSide,
		r:    r,
		w:    wsutil.NewWriter(underlying, ws.StateServerSide, ws.OpBinary),
	}
}

// newClientWSConn wraps the upstream-side connection after a
// completed client handshake. rawReader is the stream to read frames
// from: it must yield any bytes the HTTP response reader had already
// buffered past the 101 response headers before falling through to
// the raw connection (http.Response.Body does this for us when the
// handshake is read with http.ReadResponse, since a 101 response has
// no declared length and its Body streams straight off the
// connection's bufio.Reader).
func newClientWSConn(underlying net.Conn, rawReader io.Reader) *wsConn {
	r := wsutil.NewReader(rawReader, ws.StateClientSide)
	r.OnIntermediate = wsutil.ControlFrameHandler(underlying, ws.StateClientSide)
	return &wsConn{
		Conn: underlying,
		side: ws.StateClientSide,
		r:    r,
		w:    wsutil.NewWriter(underlying, ws.StateClientSide, ws.OpBinary),
	}
}

func (c *wsConn) Read(p []byte) (int, error) {
	if c.remainLenForLastFrame > 0 {
		n, err := c.r.Read(p)
		if err != nil && err != io.EOF {
			return n, err
		}
		c.remainLenForLastFrame -= int64(n)
		return n, nil
	}

	h, err := c.r.NextFrame()
	if err != nil {
		return 0, err
	}
	if h.OpCode != ws.OpBinary {
		return 0, xerr.New("ws frame opcode not binary", nil, h.OpCode)
	}
	c.remainLenForLastFrame = h.Length

	n, err := c.r.Read(p)
	c.remainLenForLastFrame -= int64(n)
	if err != nil && err != io.EOF {
		return n, err
	}
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, c.w.Flush()
}

// WriteFirstMessage sends data as a single complete binary message,
// used to forward decoded xhttp early-data immediately after the
// handshake.
func (c *wsConn) WriteFirstMessage(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := c.Write(data)
	return err
}

// CloseWithCode sends a close control frame (best-effort) before
// closing the underlying connection, satisfying bridge.Closer.
func (c *wsConn) CloseWithCode(code int, reason string) error {
	body := ws.NewCloseFrameBody(ws.StatusCode(code), reason)
	if c.side == ws.StateServerSide {
		_ = wsutil.WriteServerMessage(c.Conn, ws.OpClose, body)
	} else {
		_ = wsutil.WriteClientMessage(c.Conn, ws.OpClose, body)
	}
	return c.Conn.Close()
}
