package ingress

import (
	"net"

	"github.com/pires/go-proxyproto"
)

// WrapProxyProtocol optionally wraps ln so that a connection's real
// source address, as reported by an upstream PROXY-protocol-speaking
// load balancer, replaces the TCP-visible peer address before
// net/http ever sees it. Disabled (ln returned unchanged) when enable
// is false.
func WrapProxyProtocol(ln net.Listener, enable bool) net.Listener {
	if !enable {
		return ln
	}
	return &proxyproto.Listener{Listener: ln}
}
