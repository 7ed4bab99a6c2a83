// Package api defines the wire API between the playout server and its viewers.
//
// Each API call (request and response) is a JSON-encoded "packet" of the following structure:
//
//	id - (optional) a globally unique packet id;
//	 t - (required) one of the predefined unique packet types;
//	 p - (optional) packet payload with arbitrary data.
//
// The basic idea behind this API is that the packets differentiate by their predefined types
// with which it is possible to unwrap the payload into distinct request/response data structures.
// And the id field is used for tracking request-response pairs on both sides of the wire.
//
// Example:
//
//	{"t":4,"p":{"ice":[{"urls":"stun:stun.l.google.com:19302"}],"sessions":[{"name":"zelda-2006"}]}}
package api

import (
	"fmt"

	"github.com/goccy/go-json"
)

type (
	Id interface {
		String() string
	}
	PT uint8
)

type In[I Id] struct {
	Id      I               `json:"id,omitempty"`
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

func (i In[I]) GetPayload() []byte { return i.Payload }
func (i In[I]) GetType() PT        { return i.T }

type Out struct {
	Id      string `json:"id,omitempty"` // string because omitempty won't work as intended with arrays
	T       uint8  `json:"t"`
	Payload any    `json:"p,omitempty"`
}

// Packet codes:
//
//	x - system codes
//	1xx - viewer codes
//	2xx - server push codes
const (
	CheckLatency PT = 3
	InitSession  PT = 4

	WebrtcInit    PT = 100
	WebrtcOffer   PT = 101
	WebrtcAnswer  PT = 102
	WebrtcIce     PT = 103
	PlaySession   PT = 104
	StopSession   PT = 105
	SetPlaying    PT = 106
	SetRate       PT = 107
	SetVolume     PT = 108
	SetPitch      PT = 109
	RecordSession PT = 110
	GetSessions   PT = 111
	GetDebug      PT = 112
	SeekSession   PT = 113

	SessionEnded  PT = 201
	SessionClosed PT = 202

	IceCandidate = WebrtcIce
)

func (p PT) String() string {
	switch p {
	case CheckLatency:
		return "CheckLatency"
	case InitSession:
		return "InitSession"
	case WebrtcInit:
		return "WebrtcInit"
	case WebrtcOffer:
		return "WebrtcOffer"
	case WebrtcAnswer:
		return "WebrtcAnswer"
	case WebrtcIce:
		return "WebrtcIce"
	case PlaySession:
		return "PlaySession"
	case StopSession:
		return "StopSession"
	case SetPlaying:
		return "SetPlaying"
	case SetRate:
		return "SetRate"
	case SetVolume:
		return "SetVolume"
	case SetPitch:
		return "SetPitch"
	case RecordSession:
		return "RecordSession"
	case GetSessions:
		return "GetSessions"
	case GetDebug:
		return "GetDebug"
	case SeekSession:
		return "SeekSession"
	case SessionEnded:
		return "SessionEnded"
	case SessionClosed:
		return "SessionClosed"
	default:
		return "Unknown"
	}
}

const OK = "ok"

var (
	ErrForbidden = fmt.Errorf("forbidden")
	ErrMalformed = fmt.Errorf("malformed")
)

var (
	ErrPacket = Out{Payload: "err"}
	OkPacket  = Out{Payload: "ok"}
)

func Unwrap[T any](data []byte) *T {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return out
}
