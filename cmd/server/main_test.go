package main

import (
	"net"
	"testing"
)

func TestListenWithFallback_SkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	busyPort := busy.Addr().(*net.TCPAddr).Port

	ln, port, err := listenWithFallback(busyPort, 5)
	if err != nil {
		t.Fatalf("listenWithFallback failed: %v", err)
	}
	defer ln.Close()

	if port == busyPort {
		t.Errorf("expected a port other than the busy %d", busyPort)
	}
	if port <= busyPort || port > busyPort+4 {
		t.Errorf("expected port within fallback range, got %d", port)
	}
}

func TestListenWithFallback_Exhausted(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	busyPort := busy.Addr().(*net.TCPAddr).Port

	if _, _, err := listenWithFallback(busyPort, 1); err == nil {
		t.Error("expected error when the only attempt is busy")
	}
}
