package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avtools/playout/pkg/api"
	"github.com/avtools/playout/pkg/com"
	"github.com/avtools/playout/pkg/compression"
	"github.com/avtools/playout/pkg/network/webrtc"
)

// handleViewer pumps one viewer's packets through the control switch
// until its socket dies.
func (h *Hub) handleViewer(v *Viewer) chan struct{} {
	return v.ProcessPackets(func(x com.In) error {
		payload := x.GetPayload()
		switch x.GetType() {
		case api.CheckLatency:
			return v.Route(x, com.Out{Payload: time.Now().UTC().UnixMilli()})
		case api.InitSession:
			return h.HandleInitSession(x, v)
		case api.WebrtcInit:
			return h.HandleWebrtcInit(x, v)
		case api.WebrtcAnswer:
			rq := api.Unwrap[api.WebrtcAnswerRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			return h.HandleWebrtcAnswer(*rq, v)
		case api.WebrtcIce:
			rq := api.Unwrap[api.WebrtcIceCandidateRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			return h.HandleWebrtcIce(*rq, v)
		case api.PlaySession:
			rq := api.Unwrap[api.PlaySessionRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			return h.HandlePlaySession(x, *rq, v)
		case api.StopSession:
			h.session.Stop()
			return v.Route(x, api.OkPacket)
		case api.SeekSession:
			rq := api.Unwrap[api.SeekSessionRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			return h.HandleSeekSession(x, *rq, v)
		case api.SetPlaying:
			rq := api.Unwrap[api.SetPlayingRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			h.session.SetPlaying(*rq)
			return v.Route(x, api.OkPacket)
		case api.SetRate:
			rq := api.Unwrap[api.SetRateRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			h.session.SetPlaybackRate(*rq)
			return v.Route(x, com.Out{Payload: h.session.PlaybackRate()})
		case api.SetVolume:
			rq := api.Unwrap[api.SetVolumeRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			h.session.SetVolume(*rq)
			return v.Route(x, api.OkPacket)
		case api.SetPitch:
			rq := api.Unwrap[api.SetPitchRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			h.session.SetPreservesPitch(*rq)
			return v.Route(x, api.OkPacket)
		case api.RecordSession:
			rq := api.Unwrap[api.RecordSessionRequest](payload)
			if rq == nil {
				return api.ErrMalformed
			}
			h.session.SetRecording(rq.Active, rq.User)
			return v.Route(x, com.Out{Payload: api.OK})
		case api.GetSessions:
			return v.Route(x, com.Out{Payload: h.sessionList()})
		case api.GetDebug:
			return v.Route(x, com.Out{Payload: h.session.DebugInfo()})
		default:
			h.log.Warn().Msgf("unhandled packet type %v", x.GetType())
		}
		return nil
	})
}

func (h *Hub) HandleInitSession(x com.In, v *Viewer) error {
	ice := make([]api.IceServer, 0, len(h.conf.Webrtc.IceServers))
	for _, s := range h.conf.Webrtc.IceServers {
		ice = append(ice, api.IceServer{Urls: s.Urls, Username: s.Username, Credential: s.Credential})
	}
	return v.Route(x, com.Out{Payload: api.InitSessionResponse{Ice: ice, Sessions: h.sessionList()}})
}

func (h *Hub) sessionList() []api.SessionInfo {
	all := h.lib.GetAll()
	list := make([]api.SessionInfo, 0, len(all))
	for _, s := range all {
		list = append(list, api.SessionInfo{Name: s.Name, Audio: s.HasAudio, Video: s.HasVideo})
	}
	return list
}

// HandleWebrtcInit opens a call to the viewer and routes the offer
// back. ICE candidates go out of band as separate pushes.
func (h *Hub) HandleWebrtcInit(x com.In, v *Viewer) error {
	peer := webrtc.New(h.log, h.api)
	peer.OnOpen = func() { h.session.Greet(v) }
	sdp, err := peer.NewCall("opus", func(ice any) {
		candidate, err := toBase64Json(ice)
		if err != nil {
			h.log.Error().Err(err).Msgf("ice candidate encode fail for %v", ice)
			return
		}
		_ = v.Send(uint8(api.WebrtcIce), candidate)
	})
	if err != nil {
		return err
	}
	v.SetPeerConn(peer)
	offer, err := toBase64Json(sdp)
	if err != nil {
		return err
	}
	return v.Route(x, com.Out{Payload: offer})
}

func (h *Hub) HandleWebrtcAnswer(rq api.WebrtcAnswerRequest, v *Viewer) error {
	peer := v.PeerConn()
	if peer == nil {
		return api.ErrForbidden
	}
	return peer.SetRemoteSDP(rq.Sdp, fromBase64Json)
}

func (h *Hub) HandleWebrtcIce(rq api.WebrtcIceCandidateRequest, v *Viewer) error {
	peer := v.PeerConn()
	if peer == nil {
		return api.ErrForbidden
	}
	return peer.AddCandidate(rq.Candidate, fromBase64Json)
}

// Open resolves a library entry, unpacks it when archived, and mounts
// it into the session.
func (h *Hub) Open(name string) error {
	meta := h.lib.Find(name)
	if !meta.Found() {
		return fmt.Errorf("no session [%v] in the library", name)
	}
	path := meta.FullPath("")
	if meta.Archive {
		dir, err := h.unpack(path)
		if err != nil {
			return fmt.Errorf("can't unpack [%v]: %w", name, err)
		}
		path = dir
	}
	return h.session.Load(path)
}

func (h *Hub) HandlePlaySession(x com.In, rq api.PlaySessionRequest, v *Viewer) error {
	if err := h.Open(rq.Name); err != nil {
		h.log.Error().Err(err).Msgf("can't open [%v]", rq.Name)
		return v.Route(x, api.ErrPacket)
	}
	if rq.Record {
		h.session.SetRecording(true, v.Id().String())
	}
	if rq.At > 0 {
		if _, err := h.session.Seek(time.Duration(rq.At * float64(time.Second))); err != nil {
			h.log.Error().Err(err).Msgf("can't start [%v] at %vs", rq.Name, rq.At)
		}
	}
	if err := h.session.Play(); err != nil {
		h.log.Error().Err(err).Msgf("can't play [%v]", rq.Name)
		return v.Route(x, api.ErrPacket)
	}
	return v.Route(x, com.Out{Payload: h.session.Loaded()})
}

func (h *Hub) HandleSeekSession(x com.In, rq api.SeekSessionRequest, v *Viewer) error {
	pos, err := h.session.Seek(time.Duration(rq.At * float64(time.Second)))
	if err != nil {
		h.log.Error().Err(err).Msgf("seek to %vs failed", rq.At)
		return v.Route(x, api.ErrPacket)
	}
	return v.Route(x, com.Out{Payload: pos.Seconds()})
}

// unpack extracts an archived session next to the archive, keeping
// its name without the extension, and rescans the library. Archives
// unpacked on an earlier play are reused as is.
func (h *Hub) unpack(path string) (string, error) {
	dir := strings.TrimSuffix(path, filepath.Ext(path))
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	ex := compression.NewFromExt(path, h.log)
	if ex == nil {
		return "", fmt.Errorf("unsupported archive %v", filepath.Base(path))
	}
	if _, err := ex.Extract(path, filepath.Dir(path)); err != nil {
		return "", err
	}
	h.lib.Scan()
	return dir, nil
}
