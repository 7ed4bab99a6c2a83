package socket

import (
	"net"
	"testing"
)

func TestFailOnPortInUse(t *testing.T) {
	l, err := NewUDP(0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()
	port := l.LocalAddr().(*net.UDPAddr).Port
	if _, err = NewUDP(port); err == nil {
		t.Errorf("expected a busy port error on %v, got none", port)
	} else if !isPortBusy(err) {
		t.Errorf("not a busy port error: %v", err)
	}
}

func TestPortRoll(t *testing.T) {
	l, err := NewUDP(0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()
	port := l.LocalAddr().(*net.UDPAddr).Port

	l2, err := NewUDPPortRoll(port)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l2.Close() }()
	if p := l2.LocalAddr().(*net.UDPAddr).Port; p == port {
		t.Errorf("expected a rolled port, got the busy %v", p)
	}
}
