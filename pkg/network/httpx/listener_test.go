package httpx

import (
	"strconv"
	"testing"
)

func TestListenerCreation(t *testing.T) {
	tests := []struct {
		addr string
		fail bool
	}{
		{addr: ":0"},
		{addr: ":"},
		{addr: ""},
		{addr: "localhost:0"},
		{addr: "localhost:abc1", fail: true},
		{addr: "https://garbage.com:99a9a", fail: true},
	}

	for _, test := range tests {
		ls, err := NewListener(test.addr, false)
		if test.fail {
			if err == nil {
				t.Errorf("no error for a bad address [%v]", test.addr)
			}
			continue
		}
		if err != nil {
			t.Errorf("listen [%v] failed: %v", test.addr, err)
			continue
		}
		if ls.GetPort() == 0 {
			t.Errorf("no port was bound for [%v]", test.addr)
		}
		_ = ls.Close()
	}
}

func TestListenerKeepsRequestedPort(t *testing.T) {
	probe, err := NewListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatal(err)
	}
	port := probe.GetPort()
	_ = probe.Close()

	ls, err := NewListener("127.0.0.1:"+strconv.Itoa(port), false)
	if err != nil {
		t.Skipf("port %v was taken meanwhile: %v", port, err)
	}
	defer func() { _ = ls.Close() }()
	if ls.GetPort() != port {
		t.Errorf("expected port %v, got %v", port, ls.GetPort())
	}
}

func TestListenerFailsOnBusyPort(t *testing.T) {
	a, err := NewListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Close() }()
	addr := "127.0.0.1:" + strconv.Itoa(a.GetPort())
	if _, err = NewListener(addr, false); err == nil {
		t.Errorf("expected a busy port error on %v, got none", addr)
	} else if !isErrorAddressAlreadyInUse(err) {
		t.Errorf("not a busy port error: %v", err)
	}
}

func TestListenerPortRoll(t *testing.T) {
	a, err := NewListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Close() }()
	port := a.GetPort()

	b, err := NewListener("127.0.0.1:"+strconv.Itoa(port), true)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = b.Close() }()
	if b.GetPort() == port {
		t.Errorf("expected a rolled port, got the busy %v", port)
	}
}
