package config

// Webrtc tunes the viewer peer transport.
type Webrtc struct {
	DisableDefaultInterceptors bool
	// a forced DTLS role for the answering side, pion default when 0
	DtlsRole   byte
	IceServers []IceServer
	// a port range for ICE connections, ignored with SinglePort
	IcePorts struct {
		Min uint16
		Max uint16
	}
	// a public IP for the NAT 1-to-1 candidate mapping
	IceIpMap string
	IceLite  bool
	// serve every peer over one UDP muxed port
	SinglePort int
	LogLevel   int
}

// IceServer is sent to viewers verbatim during signaling.
type IceServer struct {
	Urls       string `json:"urls,omitempty"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func (w *Webrtc) HasDtlsRole() bool   { return w.DtlsRole > 0 }
func (w *Webrtc) HasPortRange() bool  { return w.IcePorts.Min > 0 && w.IcePorts.Max > 0 }
func (w *Webrtc) HasSinglePort() bool { return w.SinglePort > 0 }
func (w *Webrtc) HasIceIpMap() bool   { return w.IceIpMap != "" }
