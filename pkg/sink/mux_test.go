package sink

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/avtools/playout/pkg/media"
)

type call struct {
	sink string
	op   string
	args []any
}

// stubSink records every call into a trace shared with its sibling, so
// the tests can check both delegation targets and their order.
type stubSink struct {
	name  string
	trace *[]call

	startErr error
	started  bool
	playing  bool
	rate     float64
	endTime  time.Duration
	position time.Duration
	posAt    time.Time
	unplayed time.Duration
	frames   bool
	ended    chan struct{}
	device   *media.AudioDeviceInfo
	debug    RenderDebug
}

func (s *stubSink) called(op string, args ...any) {
	*s.trace = append(*s.trace, call{sink: s.name, op: op, args: args})
}

func (s *stubSink) Start(at time.Duration, info media.Info) error {
	s.called("Start", at, info)
	return s.startErr
}
func (s *stubSink) Stop()     { s.called("Stop") }
func (s *stubSink) Shutdown() { s.called("Shutdown") }

func (s *stubSink) IsStarted() bool { s.called("IsStarted"); return s.started }
func (s *stubSink) IsPlaying() bool { s.called("IsPlaying"); return s.playing }

func (s *stubSink) SetPlaying(playing bool) { s.called("SetPlaying", playing) }

func (s *stubSink) OnEnded(t media.TrackType) <-chan struct{} {
	s.called("OnEnded", t)
	return s.ended
}

func (s *stubSink) EndTime(t media.TrackType) time.Duration {
	s.called("EndTime", t)
	return s.endTime
}

func (s *stubSink) Position(at *time.Time) time.Duration {
	s.called("Position")
	if at != nil {
		*at = s.posAt
	}
	return s.position
}

func (s *stubSink) HasUnplayedFrames(t media.TrackType) bool {
	s.called("HasUnplayedFrames", t)
	return s.frames
}

func (s *stubSink) UnplayedDuration(t media.TrackType) time.Duration {
	s.called("UnplayedDuration", t)
	return s.unplayed
}

func (s *stubSink) SetVolume(v float64)       { s.called("SetVolume", v) }
func (s *stubSink) SetPlaybackRate(r float64) { s.called("SetPlaybackRate", r) }
func (s *stubSink) PlaybackRate() float64     { s.called("PlaybackRate"); return s.rate }
func (s *stubSink) SetPreservesPitch(on bool) { s.called("SetPreservesPitch", on) }

func (s *stubSink) Redraw(info media.VideoInfo)                  { s.called("Redraw", info) }
func (s *stubSink) SetSecondaryVideoContainer(c media.VideoContainer) { s.called("SetSecondaryVideoContainer", c) }
func (s *stubSink) AudioDevice() *media.AudioDeviceInfo          { s.called("AudioDevice"); return s.device }
func (s *stubSink) SetStreamName(name string)                    { s.called("SetStreamName", name) }

func (s *stubSink) DebugInfo(d *DebugInfo) {
	s.called("DebugInfo")
	d.Render = s.debug
}

func newMuxPair() (*Mux, *stubSink, *stubSink, *[]call) {
	trace := &[]call{}
	render := &stubSink{name: "render", trace: trace}
	capture := &stubSink{name: "capture", trace: trace}
	return NewMux(render, capture), render, capture, trace
}

func calls(trace *[]call, sink string) (n int) {
	for _, c := range *trace {
		if c.sink == sink {
			n++
		}
	}
	return
}

func TestQueriesGoToRenderOnly(t *testing.T) {
	mux, render, _, trace := newMuxPair()
	render.started = true
	render.playing = true
	render.rate = 1.25
	render.endTime = 42 * time.Second
	render.position = 7 * time.Second
	render.unplayed = 160 * time.Millisecond
	render.frames = true
	render.device = &media.AudioDeviceInfo{ID: "null", Name: "null output"}

	if v := mux.IsStarted(); v != render.started {
		t.Errorf("IsStarted: %v", v)
	}
	if v := mux.IsPlaying(); v != render.playing {
		t.Errorf("IsPlaying: %v", v)
	}
	if v := mux.PlaybackRate(); v != render.rate {
		t.Errorf("PlaybackRate: %v != %v", v, render.rate)
	}
	if v := mux.EndTime(media.TrackAudio); v != render.endTime {
		t.Errorf("EndTime: %v != %v", v, render.endTime)
	}
	if v := mux.Position(nil); v != render.position {
		t.Errorf("Position: %v != %v", v, render.position)
	}
	if v := mux.HasUnplayedFrames(media.TrackVideo); v != render.frames {
		t.Errorf("HasUnplayedFrames: %v", v)
	}
	if v := mux.UnplayedDuration(media.TrackAudio); v != render.unplayed {
		t.Errorf("UnplayedDuration: %v != %v", v, render.unplayed)
	}
	if v := mux.AudioDevice(); v != render.device {
		t.Errorf("AudioDevice: %v != %v", v, render.device)
	}
	mux.OnEnded(media.TrackAudio)
	mux.DebugInfo(&DebugInfo{})

	if n := calls(trace, "capture"); n != 0 {
		t.Errorf("a query leaked to the capture sink %v times: %v", n, *trace)
	}
	if n := calls(trace, "render"); n != 10 {
		t.Errorf("render saw %v calls, wanted 10", n)
	}
}

func TestMirroredOpsHitBothInOrder(t *testing.T) {
	info := media.VideoInfo{W: 640, H: 480, Fps: 30}
	tests := []struct {
		op  string
		do  func(m *Mux)
		arg []any
	}{
		{op: "SetStreamName", do: func(m *Mux) { m.SetStreamName("take-1") }, arg: []any{"take-1"}},
		{op: "SetPlaybackRate", do: func(m *Mux) { m.SetPlaybackRate(1.5) }, arg: []any{1.5}},
		{op: "SetPlaying", do: func(m *Mux) { m.SetPlaying(false) }, arg: []any{false}},
		{op: "Redraw", do: func(m *Mux) { m.Redraw(info) }, arg: []any{info}},
		{op: "SetSecondaryVideoContainer", do: func(m *Mux) { m.SetSecondaryVideoContainer(nil) }, arg: []any{media.VideoContainer(nil)}},
		{op: "Stop", do: func(m *Mux) { m.Stop() }},
		{op: "Shutdown", do: func(m *Mux) { m.Shutdown() }},
	}
	for _, test := range tests {
		mux, _, _, trace := newMuxPair()
		test.do(mux)
		if len(*trace) != 2 {
			t.Fatalf("%v: expected 2 calls, got %v", test.op, *trace)
		}
		first, second := (*trace)[0], (*trace)[1]
		if first.sink != "render" || second.sink != "capture" {
			t.Errorf("%v: wrong order: %v then %v", test.op, first.sink, second.sink)
		}
		if first.op != test.op || second.op != test.op {
			t.Errorf("%v: wrong ops: %v, %v", test.op, first.op, second.op)
		}
		if !reflect.DeepEqual(first.args, test.arg) {
			t.Errorf("%v: render args %v != %v", test.op, first.args, test.arg)
		}
		if !reflect.DeepEqual(first.args, second.args) {
			t.Errorf("%v: args diverged: %v != %v", test.op, first.args, second.args)
		}
	}
}

func TestVolumeAndPitchStayOnRender(t *testing.T) {
	mux, _, _, trace := newMuxPair()
	for _, v := range []float64{0, 0.5, 1, 2} {
		mux.SetVolume(v)
	}
	mux.SetPreservesPitch(true)
	mux.SetPreservesPitch(false)

	if n := calls(trace, "capture"); n != 0 {
		t.Errorf("volume/pitch reached the capture sink: %v", *trace)
	}
	if n := calls(trace, "render"); n != 6 {
		t.Errorf("render saw %v calls, wanted 6", n)
	}
}

func TestStartMergesResults(t *testing.T) {
	errA := errors.New("device busy")
	errB := errors.New("consumer rejected")
	tests := []struct {
		name    string
		render  error
		capture error
		want    error
	}{
		{name: "both ok", render: nil, capture: nil, want: nil},
		{name: "capture failed", render: nil, capture: errB, want: errB},
		{name: "render failed", render: errA, capture: nil, want: errA},
		{name: "same failure", render: errA, capture: errA, want: errA},
		{name: "distinct failures", render: errA, capture: errB, want: ErrStartFailed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mux, render, capture, trace := newMuxPair()
			render.startErr = test.render
			capture.startErr = test.capture

			err := mux.Start(0, media.Info{})
			if !errors.Is(err, test.want) {
				t.Errorf("merged %v, wanted %v", err, test.want)
			}
			// both sinks must be started even when the first fails
			if rn, cn := calls(trace, "render"), calls(trace, "capture"); rn != 1 || cn != 1 {
				t.Errorf("start fanned out %v/%v times, wanted 1/1", rn, cn)
			}
		})
	}
}

func TestStartKeepsWrappedFailure(t *testing.T) {
	cause := ErrAudioDevice
	mux, render, capture, _ := newMuxPair()
	render.startErr = fmt.Errorf("opening output: %w", cause)
	capture.startErr = cause

	err := mux.Start(0, media.Info{})
	if err != render.startErr {
		t.Errorf("expected the render error with its context, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("merged error lost the cause: %v", err)
	}
}

func TestStartForwardsArguments(t *testing.T) {
	mux, _, _, trace := newMuxPair()
	info := media.Info{Audio: &media.AudioInfo{Rate: 48000, Channels: 2}}
	at := 3 * time.Second

	_ = mux.Start(at, info)
	for _, c := range *trace {
		if !reflect.DeepEqual(c.args, []any{at, info}) {
			t.Errorf("%v got %v", c.sink, c.args)
		}
	}
}

func TestOnEndedReturnsRenderChannel(t *testing.T) {
	mux, render, _, _ := newMuxPair()
	render.ended = make(chan struct{})

	if got := mux.OnEnded(media.TrackVideo); got != (<-chan struct{})(render.ended) {
		t.Error("OnEnded returned a different channel than the render sink's")
	}
}

func TestOnEndedNilWhenNotStarted(t *testing.T) {
	mux, _, _, _ := newMuxPair()
	if got := mux.OnEnded(media.TrackAudio); got != nil {
		t.Errorf("expected nil channel, got %v", got)
	}
}

func TestStopAndShutdownForwardEveryTime(t *testing.T) {
	mux, _, _, trace := newMuxPair()
	mux.Stop()
	mux.Stop()
	mux.Shutdown()
	mux.Shutdown()

	want := []call{
		{sink: "render", op: "Stop"},
		{sink: "capture", op: "Stop"},
		{sink: "render", op: "Stop"},
		{sink: "capture", op: "Stop"},
		{sink: "render", op: "Shutdown"},
		{sink: "capture", op: "Shutdown"},
		{sink: "render", op: "Shutdown"},
		{sink: "capture", op: "Shutdown"},
	}
	if !reflect.DeepEqual(*trace, want) {
		t.Errorf("repeated stop/shutdown were gated: %v", *trace)
	}
}

func TestPositionTimestamp(t *testing.T) {
	mux, render, _, _ := newMuxPair()
	render.position = 11 * time.Second
	render.posAt = time.Unix(1700000000, 0)

	var at time.Time
	if pos := mux.Position(&at); pos != render.position {
		t.Errorf("position %v != %v", pos, render.position)
	}
	if !at.Equal(render.posAt) {
		t.Errorf("timestamp %v != %v", at, render.posAt)
	}
}

func TestDebugInfoSkipsCapture(t *testing.T) {
	mux, render, _, _ := newMuxPair()
	render.debug = RenderDebug{Started: true, Rate: 2, Stream: "take-1"}

	var d DebugInfo
	mux.DebugInfo(&d)
	if !reflect.DeepEqual(d.Render, render.debug) {
		t.Errorf("render section %+v != %+v", d.Render, render.debug)
	}
	if !reflect.DeepEqual(d.Capture, CaptureDebug{}) {
		t.Errorf("capture section should stay empty, got %+v", d.Capture)
	}
}
