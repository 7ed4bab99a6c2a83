package webrtc

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/logger"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// Peer is one viewer connection: an Opus track carries the session
// audio, the data channel ships JPEG frames out and control messages in.
type Peer struct {
	api  *ApiFactory
	conn *webrtc.PeerConnection
	log  *logger.Logger

	// OnMessage receives viewer control messages from the data channel.
	OnMessage func(data []byte)
	// OnOpen fires when the data channel is ready for frames.
	OnOpen func()
	// OnClose fires once when the connection dies for any reason.
	OnClose func()

	closed sync.Once

	a *webrtc.TrackLocalStaticSample
	d *webrtc.DataChannel
}

var samplePool sync.Pool

type Decoder func(data string, obj any) error

func New(log *logger.Logger, api *ApiFactory) *Peer { return &Peer{api: api, log: log} }

// NewCall opens a new call to a viewer.
// The stream provider supposes to send the offer.
func (p *Peer) NewCall(aCodec string, onICECandidate func(ice any)) (sdp any, err error) {
	if p.conn != nil && p.conn.ConnectionState() == webrtc.PeerConnectionStateConnected {
		return
	}
	p.log.Debug().Msg("WebRTC start")
	if p.conn, err = p.api.NewPeer(); err != nil {
		return
	}
	p.conn.OnICECandidate(p.handleICECandidate(onICECandidate))

	// plug in the [audio] track (out)
	audio, err := newAudioTrack(aCodec)
	if err != nil {
		return "", err
	}
	as, err := p.conn.AddTrack(audio)
	if err != nil {
		return "", err
	}
	// Read incoming RTCP packets
	go func() {
		rtcpBuf := make([]byte, 1500)
		for {
			if _, _, rtcpErr := as.Read(rtcpBuf); rtcpErr != nil {
				return
			}
		}
	}()
	p.a = audio
	p.log.Debug().Msgf("Added [%s] track", audio.Codec().MimeType)

	// plug in the [data] channel (frames out, control in)
	if err = p.addDataChannel("data"); err != nil {
		return "", err
	}
	p.log.Debug().Msg("Added [data] chan")

	p.conn.OnICEConnectionStateChange(p.handleICEState(func() { p.log.Info().Msg("Connected") }))
	offer, err := p.conn.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	p.log.Debug().Msg("Created Offer")

	err = p.conn.SetLocalDescription(offer)
	if err != nil {
		return "", err
	}

	return offer, nil
}

func (p *Peer) SendAudio(dat []byte, dur int32) {
	if err := p.send(dat, int64(dur), p.a.WriteSample); err != nil {
		p.log.Error().Err(err).Msg("audio write fail")
	}
}

// SendFrame ships one JPEG-compressed frame over the data channel.
func (p *Peer) SendFrame(data []byte) {
	if p.d != nil {
		_ = p.d.Send(data)
	}
}

// SendText ships one control message over the data channel.
func (p *Peer) SendText(text string) {
	if p.d != nil {
		_ = p.d.SendText(text)
	}
}

func (p *Peer) send(data []byte, duration int64, fn func(media.Sample) error) error {
	sample, _ := samplePool.Get().(*media.Sample)
	if sample == nil {
		sample = new(media.Sample)
	}
	sample.Data = data
	sample.Duration = time.Duration(duration)
	err := fn(*sample)
	if err != nil {
		return err
	}
	samplePool.Put(sample)
	return nil
}

func (p *Peer) IsConnected() bool {
	return p.conn != nil && p.conn.ConnectionState() == webrtc.PeerConnectionStateConnected
}

func (p *Peer) SetRemoteSDP(sdp string, decoder Decoder) error {
	var answer webrtc.SessionDescription
	if err := decoder(sdp, &answer); err != nil {
		return err
	}
	if err := p.conn.SetRemoteDescription(answer); err != nil {
		p.log.Error().Err(err).Msg("Set remote description from peer failed")
		return err
	}
	p.log.Debug().Msg("Set Remote Description")
	return nil
}

func newAudioTrack(codec string) (*webrtc.TrackLocalStaticSample, error) {
	var mime string
	switch strings.ToLower(codec) {
	case "opus":
		mime = webrtc.MimeTypeOpus
	}
	if mime == "" {
		return nil, fmt.Errorf("unsupported audio codec %s", codec)
	}
	return webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, "audio", "audio")
}

func (p *Peer) handleICECandidate(callback func(any)) func(*webrtc.ICECandidate) {
	return func(ice *webrtc.ICECandidate) {
		// ICE gathering finish condition
		if ice == nil {
			callback(nil)
			p.log.Debug().Msg("ICE gathering was complete probably")
			return
		}
		candidate := ice.ToJSON()
		p.log.Debug().Str("candidate", candidate.Candidate).Msg("ICE")
		callback(&candidate)
	}
}

func (p *Peer) handleICEState(onConnect func()) func(webrtc.ICEConnectionState) {
	return func(state webrtc.ICEConnectionState) {
		p.log.Debug().Str(".state", state.String()).Msg("ICE")
		switch state {
		case webrtc.ICEConnectionStateChecking:
			// nothing
		case webrtc.ICEConnectionStateConnected:
			onConnect()
		case webrtc.ICEConnectionStateFailed:
			p.log.Error().Msgf("WebRTC connection fail! connection: %v, ice: %v, gathering: %v, signalling: %v",
				p.conn.ConnectionState(), p.conn.ICEConnectionState(), p.conn.ICEGatheringState(),
				p.conn.SignalingState())
			p.Disconnect()
		case webrtc.ICEConnectionStateClosed,
			webrtc.ICEConnectionStateDisconnected:
			p.Disconnect()
		default:
			p.log.Debug().Msg("ICE state is not handled!")
		}
	}
}

func (p *Peer) AddCandidate(candidate string, decoder Decoder) error {
	// !to add test when the connection is closed but it is still
	// receiving ice candidates

	var iceCandidate webrtc.ICECandidateInit
	if err := decoder(candidate, &iceCandidate); err != nil {
		return err
	}
	if err := p.conn.AddICECandidate(iceCandidate); err != nil {
		return err
	}
	p.log.Debug().Str("candidate", iceCandidate.Candidate).Msg("Ice")
	return nil
}

func (p *Peer) Disconnect() {
	if p.conn == nil {
		return
	}
	if p.conn.ConnectionState() < webrtc.PeerConnectionStateDisconnected {
		// ignore this due to DTLS fatal: conn is closed
		_ = p.conn.Close()
	}
	p.closed.Do(func() {
		if p.OnClose != nil {
			p.OnClose()
		}
	})
	p.log.Debug().Msg("WebRTC stop")
}

// addDataChannel creates a new WebRTC data channel for the frame stream.
// Default params -- ordered: true, negotiated: false.
func (p *Peer) addDataChannel(label string) error {
	ch, err := p.conn.CreateDataChannel(label, nil)
	if err != nil {
		return err
	}
	ch.OnOpen(func() {
		p.log.Debug().Str("label", ch.Label()).Uint16("id", *ch.ID()).
			Msg("Data channel [data] opened")
		if p.OnOpen != nil {
			p.OnOpen()
		}
	})
	ch.OnError(p.logx)
	ch.OnMessage(func(m webrtc.DataChannelMessage) {
		if len(m.Data) == 0 {
			return
		}
		if p.OnMessage != nil {
			p.OnMessage(m.Data)
		}
	})
	p.d = ch
	ch.OnClose(func() { p.log.Debug().Msg("Data channel [data] has been closed") })
	return nil
}

func (p *Peer) logx(err error) { p.log.Error().Err(err).Send() }
