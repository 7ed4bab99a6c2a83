// Package socket binds raw UDP listeners for the single-port WebRTC mode.
package socket

import (
	"errors"
	"net"
	"os"
	"runtime"
	"syscall"
)

const rollAttempts = 42

// System buffers are enlarged to survive viewer fan-out bursts.
const udpBufferSize = 16 * 1024 * 1024

// NewUDP binds a UDP socket on the given port.
func NewUDP(port int) (*net.UDPConn, error) {
	l, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	_ = l.SetReadBuffer(udpBufferSize)
	_ = l.SetWriteBuffer(udpBufferSize)
	return l, nil
}

// NewUDPPortRoll binds a UDP socket on the first free port starting
// with the given one.
func NewUDPPortRoll(port int) (*net.UDPConn, error) {
	l, err := NewUDP(port)
	if err == nil {
		return l, nil
	}
	if !isPortBusy(err) {
		return nil, err
	}
	for p := port + 1; p < port+rollAttempts; p++ {
		if l, err = NewUDP(p); err == nil {
			return l, nil
		}
	}
	return nil, errors.New("no available ports")
}

func isPortBusy(err error) bool {
	var sysErr *os.SyscallError
	if !errors.As(err, &sysErr) {
		return false
	}
	var errno syscall.Errno
	if !errors.As(sysErr, &errno) {
		return false
	}
	if errno == syscall.EADDRINUSE {
		return true
	}
	// WSAEADDRINUSE
	return runtime.GOOS == "windows" && errno == 10048
}
