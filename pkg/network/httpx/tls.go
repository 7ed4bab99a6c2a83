package httpx

import "golang.org/x/crypto/acme/autocert"

// certCacheDir keeps issued certificates between restarts.
const certCacheDir = "cache/certs"

// newCertManager configures automatic TLS certificates for the given
// host, or for any host when it is empty.
func newCertManager(host string) *autocert.Manager {
	m := autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache(certCacheDir),
	}
	if host != "" {
		m.HostPolicy = autocert.HostWhitelist(host)
	}
	return &m
}
