// Package sink defines the output contract of a playback session and a
// mux that drives a rendering output and a captured-stream output as one.
package sink

import (
	"errors"
	"time"

	"github.com/avtools/playout/pkg/media"
)

// Start failure values. Sinks report these (optionally wrapped) so the
// results stay comparable with errors.Is across implementations.
var (
	// ErrStartFailed is the composite status for two unrelated failures.
	ErrStartFailed  = errors.New("sink: start failed")
	ErrNoAudioTrack = errors.New("sink: no audio track")
	ErrNoVideoTrack = errors.New("sink: no video track")
	ErrAudioDevice  = errors.New("sink: audio device unavailable")
	ErrShutDown     = errors.New("sink: shut down")
)

// Sink consumes the decoded media of one playback session and produces
// an output: device audio with presented frames, a captured stream, or
// both when sinks are muxed.
//
// Lifecycle goes Start -> Stop -> Start... with a final Shutdown, and
// the callers keep that order; a sink doesn't have to defend against
// queries before Start, only not to crash. Sinks are owned by whoever
// created them, never by the components they are passed to.
type Sink interface {
	// Start begins output from the given media position.
	Start(at time.Duration, info media.Info) error
	Stop()
	Shutdown()
	IsStarted() bool
	IsPlaying() bool
	SetPlaying(playing bool)

	// OnEnded returns the channel closed when the track finishes, the
	// same channel instance for repeated calls while started, and nil
	// when the sink is not started or the track is absent.
	OnEnded(track media.TrackType) <-chan struct{}
	// EndTime reports the media time up to which the track has data.
	EndTime(track media.TrackType) time.Duration
	// Position reports the current media time and, with non-nil at,
	// stores the wall-clock instant the position corresponds to.
	Position(at *time.Time) time.Duration
	HasUnplayedFrames(track media.TrackType) bool
	UnplayedDuration(track media.TrackType) time.Duration

	SetVolume(volume float64)
	// SetPlaybackRate applies the rate to the output that follows.
	SetPlaybackRate(rate float64)
	PlaybackRate() float64
	SetPreservesPitch(on bool)
	// Redraw pushes the most recent frame to the video containers again.
	Redraw(info media.VideoInfo)
	SetSecondaryVideoContainer(c media.VideoContainer)
	// AudioDevice reports the open audio output, nil when there is none.
	AudioDevice() *media.AudioDeviceInfo

	SetStreamName(name string)
	// DebugInfo fills the sections of d the sink owns, in place.
	DebugInfo(d *DebugInfo)
}

// DebugInfo is a bag of per-sink diagnostics filled in place by whichever
// sinks a retrieval call reaches.
type DebugInfo struct {
	Render  RenderDebug  `json:"render"`
	Capture CaptureDebug `json:"capture"`
}

type RenderDebug struct {
	Started    bool          `json:"started"`
	Playing    bool          `json:"playing"`
	Rate       float64       `json:"rate"`
	Volume     float64       `json:"volume"`
	Pitch      bool          `json:"pitch"`
	Position   time.Duration `json:"position"`
	AudioQueue int           `json:"audio_queue"`
	VideoQueue int           `json:"video_queue"`
	Device     string        `json:"device,omitempty"`
	Stream     string        `json:"stream,omitempty"`
}

type CaptureDebug struct {
	Started   bool   `json:"started"`
	Consumers int    `json:"consumers"`
	Audio     uint64 `json:"audio_chunks"`
	Frames    uint64 `json:"frames"`
	Stream    string `json:"stream,omitempty"`
}
