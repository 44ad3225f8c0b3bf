package bridge_test

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/e1732a364fed/edgebridge/internal/bridge"
)

func TestBridgeRunRelaysBothDirectionsAndClosesOnce(t *testing.T) {
	clientLocal, clientRemote := net.Pipe()
	upstreamLocal, upstreamRemote := net.Pipe()

	var closedCount int32
	br := bridge.New(clientRemote, upstreamRemote, func() {
		atomic.AddInt32(&closedCount, 1)
	})

	done := make(chan struct{})
	go func() {
		br.Run()
		close(done)
	}()

	go func() {
		clientLocal.Write([]byte("hello upstream"))
	}()
	buf := make([]byte, 32)
	n, err := upstreamLocal.Read(buf)
	if err != nil {
		t.Fatalf("upstream read failed: %v", err)
	}
	if string(buf[:n]) != "hello upstream" {
		t.Fatalf("got %q, want forwarded client payload", buf[:n])
	}

	go func() {
		upstreamLocal.Write([]byte("hello client"))
	}()
	n, err = clientLocal.Read(buf)
	if err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	if string(buf[:n]) != "hello client" {
		t.Fatalf("got %q, want forwarded upstream payload", buf[:n])
	}

	clientLocal.Close()
	upstreamLocal.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge.Run did not return after both ends closed")
	}

	if atomic.LoadInt32(&closedCount) != 1 {
		t.Fatalf("onClosed fired %d times, want exactly 1", closedCount)
	}
}

// TestBridgeRunTearsDownOnOneSidedClose exercises the case a real
// net.Conn pair produces routinely: only one side closes (the
// upstream sending FIN while the client stays open). Run must not
// wait for the still-open side to close on its own — teardown closing
// both ends is what unblocks it.
func TestBridgeRunTearsDownOnOneSidedClose(t *testing.T) {
	clientLocal, clientRemote := net.Pipe()
	upstreamLocal, upstreamRemote := net.Pipe()
	defer clientLocal.Close()

	var closedCount int32
	br := bridge.New(clientRemote, upstreamRemote, func() {
		atomic.AddInt32(&closedCount, 1)
	})

	done := make(chan struct{})
	go func() {
		br.Run()
		close(done)
	}()

	// only the upstream side closes; the client side is never touched
	// by the test and has no data pending.
	upstreamLocal.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge.Run must tear down (and return) once a single direction ends, not wait for both")
	}

	if atomic.LoadInt32(&closedCount) != 1 {
		t.Fatalf("onClosed fired %d times, want exactly 1", closedCount)
	}

	// the client-side conn must have been closed by teardown too, even
	// though it was never closed directly by the test.
	if _, err := clientRemote.Write([]byte("x")); err == nil {
		t.Fatal("expected the client conn to be closed by teardown after the upstream side alone closed")
	}
}

func TestBridgeDisconnectIsIdempotent(t *testing.T) {
	clientLocal, clientRemote := net.Pipe()
	upstreamLocal, upstreamRemote := net.Pipe()
	defer clientLocal.Close()
	defer upstreamLocal.Close()

	var closedCount int32
	br := bridge.New(clientRemote, upstreamRemote, func() {
		atomic.AddInt32(&closedCount, 1)
	})

	disconnect := br.Disconnect()
	disconnect(1001, "going away")
	disconnect(1001, "going away again")

	if atomic.LoadInt32(&closedCount) != 1 {
		t.Fatalf("onClosed fired %d times across repeated Disconnect calls, want 1", closedCount)
	}
}
