package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
)

// dialOrigin opens a TCP (optionally TLS) connection to a backend
// origin URL, the way the teacher's netLayer/dial.go resolves a
// network address before handing it to a protocol layer.
func dialOrigin(ctx context.Context, origin *url.URL) (net.Conn, error) {
	host := origin.Host
	if origin.Port() == "" {
		port := "80"
		if origin.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(origin.Hostname(), port)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, err
	}

	if origin.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: origin.Hostname()})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return conn, nil
}
