package network

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a host:port pair where either part may be omitted.
type Address string

// Port extracts the numeric port of the address.
// A value with no colon is taken as a bare port.
func (a Address) Port() (int, error) {
	s := string(a)
	if s == "" {
		return 0, fmt.Errorf("no address")
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("no port in [%v]", string(a))
	}
	return port, nil
}
