package wsproto_test

import (
	"net/http"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/wsproto"
)

func TestIsUpgradeRequest(t *testing.T) {
	r := &http.Request{Header: http.Header{}}
	if wsproto.IsUpgradeRequest(r) {
		t.Fatal("empty headers must not count as an upgrade request")
	}

	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Connection", "keep-alive")
	if wsproto.IsUpgradeRequest(r) {
		t.Fatal("Upgrade without Connection: upgrade must not count")
	}

	r.Header.Set("Connection", "Keep-Alive, Upgrade")
	if !wsproto.IsUpgradeRequest(r) {
		t.Fatal("comma-separated Connection token must be recognized case-insensitively")
	}
}

func TestBuildUpstreamHeadersForcedWebsocket(t *testing.T) {
	src := http.Header{}
	src.Set("Host", "client.example")
	src.Set("Sec-WebSocket-Extensions", "permessage-deflate")
	src.Set("Sec-WebSocket-Protocol", "some-token")
	src.Set("Upgrade", "custom")

	dst := wsproto.BuildUpstreamHeaders(src, true, false)
	if dst.Get("Host") != "" {
		t.Fatal("Host must be stripped")
	}
	if dst.Get("Sec-WebSocket-Extensions") != "" {
		t.Fatal("Sec-WebSocket-Extensions must be stripped")
	}
	if dst.Get("Sec-WebSocket-Protocol") != "some-token" {
		t.Fatal("protocol token must survive when not consumed")
	}
	if dst.Get("Connection") != "Upgrade" || dst.Get("Upgrade") != "websocket" {
		t.Fatalf("forced websocket upgrade mismatch: %v", dst)
	}
}

func TestBuildUpstreamHeadersConsumedEarlyDataStripsProtocol(t *testing.T) {
	src := http.Header{}
	src.Set("Sec-WebSocket-Protocol", "token")
	dst := wsproto.BuildUpstreamHeaders(src, true, true)
	if dst.Get("Sec-WebSocket-Protocol") != "" {
		t.Fatal("consumed early data token must not be forwarded upstream")
	}
}

func TestBuildUpstreamHeadersHTTPUpgradeEchoesToken(t *testing.T) {
	src := http.Header{}
	src.Set("Upgrade", "custom-proto")
	dst := wsproto.BuildUpstreamHeaders(src, false, false)
	if dst.Get("Upgrade") != "custom-proto" {
		t.Fatalf("got Upgrade %q, want echoed client value", dst.Get("Upgrade"))
	}
}

func TestCanonicalBase64URLRoundTrip(t *testing.T) {
	data := []byte("hello early data")
	token := wsproto.EncodeEarlyData(data)

	decoded, ok := wsproto.CanonicalBase64URL(token)
	if !ok {
		t.Fatal("expected canonical round trip to succeed")
	}
	if string(decoded) != string(data) {
		t.Fatalf("got %q, want %q", decoded, data)
	}
}

func TestCanonicalBase64URLRejectsNonCanonical(t *testing.T) {
	if _, ok := wsproto.CanonicalBase64URL("not!base64"); ok {
		t.Fatal("invalid base64 must not be reported canonical")
	}
	// padded form decodes under RawURLEncoding only without '=' — a
	// standard-base64 token with padding should fail the raw decode.
	if _, ok := wsproto.CanonicalBase64URL("aGVsbG8="); ok {
		t.Fatal("padded base64 must not round-trip as canonical raw base64url")
	}
}

func TestExtractEarlyDataHappyPath(t *testing.T) {
	token := wsproto.EncodeEarlyData([]byte("payload"))
	data, consumed := wsproto.ExtractEarlyData(token, 1024)
	if !consumed {
		t.Fatal("expected the token to be consumed")
	}
	if string(data) != "payload" {
		t.Fatalf("got %q", data)
	}
}

func TestExtractEarlyDataZeroMaxNeverConsumes(t *testing.T) {
	token := wsproto.EncodeEarlyData([]byte("payload"))
	_, consumed := wsproto.ExtractEarlyData(token, 0)
	if consumed {
		t.Fatal("ed<=0 must never consume the token")
	}
}

func TestExtractEarlyDataSkipsKnownProtocolTokens(t *testing.T) {
	_, consumed := wsproto.ExtractEarlyData("vless", 1024)
	if consumed {
		t.Fatal("known tunnel-protocol tokens must never be treated as early data")
	}
}

func TestExtractEarlyDataRejectsMultipleTokens(t *testing.T) {
	token := wsproto.EncodeEarlyData([]byte("payload"))
	_, consumed := wsproto.ExtractEarlyData(token+", vless", 1024)
	if consumed {
		t.Fatal("more than one protocol token must not be treated as early data")
	}
}

func TestExtractEarlyDataRejectsOverMaxLen(t *testing.T) {
	token := wsproto.EncodeEarlyData([]byte("0123456789"))
	_, consumed := wsproto.ExtractEarlyData(token, 5)
	if consumed {
		t.Fatal("a decoded payload larger than maxLen must be rejected")
	}
}

func TestSanitizeCloseCode(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{1000, 1000},
		{1005, 1011},
		{1006, 1011},
		{999, 1011},
		{5000, 1011},
		{4999, 4999},
	}
	for _, c := range cases {
		if got := wsproto.SanitizeCloseCode(c.in); got != c.want {
			t.Errorf("SanitizeCloseCode(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSanitizeCloseReasonTruncates(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	got := wsproto.SanitizeCloseReason(string(long))
	if len(got) != 123 {
		t.Fatalf("got length %d, want 123", len(got))
	}
}
