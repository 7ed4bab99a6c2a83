package httpx

import (
	"net"
	"strconv"
)

// buildAddress joins the network host from the first param
// with the port value of a listener from the last param.
//
// As example, address host.com:8080 and listener 123.123.123.123:8888 will be
// transformed to host.com:8888.
// Ports 80 and 443 are dropped as implicit, an empty host becomes localhost,
// and a non-empty zone is prepended as a subdomain.
func buildAddress(address string, zone string, l Listener) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if host == "" {
		host = "localhost"
	}
	host = withZonePrefix(host, zone)

	port := l.GetPort()
	if port > 0 && port != 80 && port != 443 {
		host += ":" + strconv.Itoa(port)
	}
	return host
}

func withZonePrefix(address string, zone string) string {
	if zone == "" {
		return address
	}
	return zone + "." + address
}
