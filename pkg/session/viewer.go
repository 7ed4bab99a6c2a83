package session

import (
	"sync"

	"github.com/avtools/playout/pkg/com"
	"github.com/avtools/playout/pkg/network/webrtc"
)

// Viewer is one watching client: its signaling socket plus, after the
// WebRTC init exchange, a peer connection carrying the stream out.
type Viewer struct {
	com.SocketClient

	mu   sync.Mutex
	peer *webrtc.Peer
}

func NewViewer(sock com.SocketClient) *Viewer { return &Viewer{SocketClient: sock} }

// SetPeerConn replaces the viewer's peer connection, closing the
// previous one on a re-init.
func (v *Viewer) SetPeerConn(peer *webrtc.Peer) {
	v.mu.Lock()
	old := v.peer
	v.peer = peer
	v.mu.Unlock()
	if old != nil {
		old.Disconnect()
	}
}

func (v *Viewer) PeerConn() *webrtc.Peer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.peer
}

func (v *Viewer) Connected() bool {
	p := v.PeerConn()
	return p != nil && p.IsConnected()
}

func (v *Viewer) SendAudio(dat []byte, dur int32) {
	if p := v.PeerConn(); p != nil {
		p.SendAudio(dat, dur)
	}
}

func (v *Viewer) SendFrame(dat []byte) {
	if p := v.PeerConn(); p != nil {
		p.SendFrame(dat)
	}
}

func (v *Viewer) SendText(text string) {
	if p := v.PeerConn(); p != nil {
		p.SendText(text)
	}
}

// Disconnect tears the whole viewer down, the peer first.
func (v *Viewer) Disconnect() {
	v.mu.Lock()
	peer := v.peer
	v.peer = nil
	v.mu.Unlock()
	if peer != nil {
		peer.Disconnect()
	}
	v.SocketClient.Disconnect()
}
