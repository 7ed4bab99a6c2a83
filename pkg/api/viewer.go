package api

type (
	SessionInfo struct {
		Name     string  `json:"name"`
		Duration float64 `json:"duration,omitempty"` // seconds
		Audio    bool    `json:"audio,omitempty"`
		Video    bool    `json:"video,omitempty"`
	}
	IceServer struct {
		Urls       string `json:"urls,omitempty"`
		Username   string `json:"username,omitempty"`
		Credential string `json:"credential,omitempty"`
	}
)

type (
	InitSessionResponse struct {
		Ice      []IceServer   `json:"ice"`
		Sessions []SessionInfo `json:"sessions"`
	}
	PlaySessionRequest struct {
		Name   string  `json:"name"`
		At     float64 `json:"at,omitempty"` // start offset, seconds
		Record bool    `json:"record,omitempty"`
	}
	PlaySessionResponse = string
	SeekSessionRequest  struct {
		At float64 `json:"at"`
	}
	SeekSessionResponse  = float64
	SetPlayingRequest    = bool
	SetRateRequest       = float64
	SetVolumeRequest     = float64
	SetPitchRequest      = bool
	RecordSessionRequest struct {
		Active bool   `json:"active"`
		User   string `json:"user"`
	}
	RecordSessionResponse = string
	GetSessionsResponse   = []SessionInfo
	WebrtcAnswerRequest   struct {
		Sdp string `json:"sdp"`
	}
	WebrtcIceCandidateRequest struct {
		Candidate string `json:"candidate"`
	}
	WebrtcInitResponse = string
	SessionEndedNotice struct {
		Track string `json:"track"`
	}
	SessionClosedNotice struct {
		Session string `json:"session"`
	}
	GetDebugResponse struct {
		Session  string  `json:"session"`
		Position float64 `json:"position"` // seconds
		Duration float64 `json:"duration"` // seconds
		Playing  bool    `json:"playing"`
		Rate     float64 `json:"rate"`
		Viewers  int     `json:"viewers"`
		Sink     any     `json:"sink"`
	}
)
