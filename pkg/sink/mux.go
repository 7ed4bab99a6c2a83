package sink

import (
	"errors"
	"time"

	"github.com/avtools/playout/pkg/media"
)

// Mux exposes two sinks as one. The render sink owns the perceptible
// side of playback (timing, device audio, visible video), the capture
// sink feeds the same session to capture consumers, and every operation
// routes by one policy:
//
//   - queries go to the render sink only, its state is the playback truth;
//   - state changes mirror to both, render first, so both outputs stay in
//     the same logical session;
//   - volume and pitch preservation stay on the render sink: captured
//     audio is never attenuated by the element's volume and is always
//     time-stretched no matter the pitch flag;
//   - Start hits both and folds the two results into one.
//
// The mux keeps no playback state of its own and takes no locks: calls
// delegate synchronously on the caller's goroutine, and any sequencing
// beyond the fixed render-then-capture order is up to the sinks and the
// callers. It never disposes the sinks it holds; Stop and Shutdown are
// forwarded as-is, as many times as they are invoked.
type Mux struct {
	render  Sink
	capture Sink
}

// NewMux combines a render and a capture sink. Both must be non-nil and
// outlive the mux.
func NewMux(render, capture Sink) *Mux { return &Mux{render: render, capture: capture} }

// Start spins up both sinks unconditionally: one running output is
// better than none, so the second start is attempted even after the
// first one failed. When one result has to be picked, a failure wins
// over a success; two distinct failures fold into ErrStartFailed since a
// single result can't carry both.
//
// Nothing rolls back here. If one sink started and the other failed, the
// started one keeps running and the caller reacts to the merged result.
func (m *Mux) Start(at time.Duration, info media.Info) error {
	r := m.render.Start(at, info)
	c := m.capture.Start(at, info)
	switch {
	case errors.Is(r, c):
		return r
	case r == nil:
		return c
	case c == nil:
		return r
	}
	return ErrStartFailed
}

func (m *Mux) Stop()     { m.render.Stop(); m.capture.Stop() }
func (m *Mux) Shutdown() { m.render.Shutdown(); m.capture.Shutdown() }

// OnEnded hands out the render sink's channel untouched, so waiters see
// exactly the signal the render sink resolves.
func (m *Mux) OnEnded(track media.TrackType) <-chan struct{} { return m.render.OnEnded(track) }

func (m *Mux) EndTime(track media.TrackType) time.Duration { return m.render.EndTime(track) }
func (m *Mux) Position(at *time.Time) time.Duration        { return m.render.Position(at) }
func (m *Mux) HasUnplayedFrames(track media.TrackType) bool {
	return m.render.HasUnplayedFrames(track)
}
func (m *Mux) UnplayedDuration(track media.TrackType) time.Duration {
	return m.render.UnplayedDuration(track)
}
func (m *Mux) PlaybackRate() float64               { return m.render.PlaybackRate() }
func (m *Mux) IsStarted() bool                     { return m.render.IsStarted() }
func (m *Mux) IsPlaying() bool                     { return m.render.IsPlaying() }
func (m *Mux) AudioDevice() *media.AudioDeviceInfo { return m.render.AudioDevice() }

func (m *Mux) SetStreamName(name string) {
	m.render.SetStreamName(name)
	m.capture.SetStreamName(name)
}

func (m *Mux) SetPlaybackRate(rate float64) {
	m.render.SetPlaybackRate(rate)
	m.capture.SetPlaybackRate(rate)
}

func (m *Mux) SetPlaying(playing bool) {
	m.render.SetPlaying(playing)
	m.capture.SetPlaying(playing)
}

func (m *Mux) Redraw(info media.VideoInfo) {
	m.render.Redraw(info)
	m.capture.Redraw(info)
}

func (m *Mux) SetSecondaryVideoContainer(c media.VideoContainer) {
	m.render.SetSecondaryVideoContainer(c)
	m.capture.SetSecondaryVideoContainer(c)
}

// The capture output keeps full-scale, always-stretched audio whatever
// the element does with volume or pitch, hence no mirroring for these.
func (m *Mux) SetVolume(volume float64)  { m.render.SetVolume(volume) }
func (m *Mux) SetPreservesPitch(on bool) { m.render.SetPreservesPitch(on) }

// DebugInfo surfaces the render sink's diagnostics only; the capture
// section of d stays as the caller left it.
// !to aggregate the capture side once the debug dump consumers can
// tell the sections apart
func (m *Mux) DebugInfo(d *DebugInfo) { m.render.DebugInfo(d) }
