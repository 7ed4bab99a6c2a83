package render

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/sink"
)

type testContainer struct {
	mu     sync.Mutex
	frames int
	last   media.Video
}

func (c *testContainer) SetCurrentFrame(f *media.Video) {
	c.mu.Lock()
	c.frames++
	c.last = *f
	c.mu.Unlock()
}

func (c *testContainer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *testContainer) lastFrame() media.Video {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func videoInfo() media.Info {
	return media.Info{Video: &media.VideoInfo{W: 4, H: 4, Fps: 120}}
}

func newTestSink() *Sink { return NewSink(config.Render{}, logger.Default()) }

func TestClock(t *testing.T) {
	s := newTestSink()
	if err := s.Start(0, videoInfo()); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	if !s.IsStarted() || !s.IsPlaying() {
		t.Error("expected a started playing sink")
	}

	time.Sleep(30 * time.Millisecond)
	var at time.Time
	if p := s.Position(&at); p < 30*time.Millisecond {
		t.Errorf("clock too slow: %v", p)
	}
	if at.IsZero() {
		t.Error("no wall clock stamp")
	}

	// pause freezes the position exactly
	s.SetPlaying(false)
	f1 := s.Position(nil)
	time.Sleep(20 * time.Millisecond)
	if f2 := s.Position(nil); f2 != f1 {
		t.Errorf("paused clock moved: %v -> %v", f1, f2)
	}
	if s.IsPlaying() {
		t.Error("still playing while paused")
	}

	s.SetPlaying(true)
	s.SetPlaybackRate(4)
	base := s.Position(nil)
	if base < f1 {
		t.Errorf("position went backwards on the rate change: %v < %v", base, f1)
	}
	time.Sleep(25 * time.Millisecond)
	if d := s.Position(nil) - base; d < 100*time.Millisecond {
		t.Errorf("expected a 4x clock, moved only %v", d)
	}

	s.Stop()
	p := s.Position(nil)
	time.Sleep(15 * time.Millisecond)
	if s.Position(nil) != p {
		t.Error("stopped clock moved")
	}
	if s.IsStarted() || s.IsPlaying() {
		t.Error("started after stop")
	}
	if s.OnEnded(media.TrackVideo) != nil {
		t.Error("ended channel from a stopped sink")
	}
	// repeated stop is a no-op
	s.Stop()
}

func TestRateClamp(t *testing.T) {
	s := newTestSink()
	s.SetPlaybackRate(1000)
	if r := s.PlaybackRate(); r != maxRate {
		t.Errorf("expected clamp to %v, got %v", float64(maxRate), r)
	}
	s.SetPlaybackRate(0)
	if r := s.PlaybackRate(); r != minRate {
		t.Errorf("expected clamp to %v, got %v", float64(minRate), r)
	}
}

func TestDrainAndEnded(t *testing.T) {
	s := newTestSink()
	c := &testContainer{}
	s.SetVideoContainer(c)
	if err := s.Start(0, videoInfo()); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	ch := s.OnEnded(media.TrackVideo)
	if ch == nil {
		t.Fatal("no ended channel for the video track")
	}
	if ch2 := s.OnEnded(media.TrackVideo); ch2 != ch {
		t.Error("ended channel identity lost")
	}
	if s.OnEnded(media.TrackAudio) != nil {
		t.Error("ended channel for an absent track")
	}

	for i := 0; i < 5; i++ {
		s.WriteVideo(media.Video{Frame: make([]byte, 64), Stride: 16, W: 4, H: 4, Duration: 10 * time.Millisecond})
	}
	if et := s.EndTime(media.TrackVideo); et != 50*time.Millisecond {
		t.Errorf("expected 50ms end time, got %v", et)
	}
	s.EndOfStream(media.TrackVideo)

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("the track never ended")
	}
	if s.HasUnplayedFrames(media.TrackVideo) {
		t.Error("unplayed frames after the end")
	}
	if d := s.UnplayedDuration(media.TrackVideo); d != 0 {
		t.Errorf("unplayed duration after the end: %v", d)
	}
	if c.count() == 0 {
		t.Error("nothing was presented")
	}
	if last := c.lastFrame(); last.W != 4 || len(last.Frame) != 64 {
		t.Errorf("wrong presented frame: %+v", last)
	}

	// a late container gets the last frame again
	c2 := &testContainer{}
	s.SetSecondaryVideoContainer(c2)
	s.Redraw(media.VideoInfo{W: 4, H: 4})
	if c2.count() == 0 {
		t.Error("redraw skipped the new container")
	}
}

func TestFileDevice(t *testing.T) {
	dir := t.TempDir()
	conf := config.Render{}
	conf.Audio.Device = "file"
	conf.Audio.Dir = dir
	conf.Audio.BufferMs = 20
	s := NewSink(conf, logger.Default())

	info := media.Info{Audio: &media.AudioInfo{Rate: 8000, Channels: 2}}
	if err := s.Start(0, info); err != nil {
		t.Fatal(err)
	}
	if dev := s.AudioDevice(); dev == nil || dev.Rate != 8000 {
		t.Fatalf("wrong device info: %+v", dev)
	}

	pcm := make([]int16, 1280) // 80ms at 8000Hz stereo
	for i := range pcm {
		pcm[i] = int16(i)
	}
	s.WriteAudio(media.Audio{Data: pcm, Duration: 80 * time.Millisecond})
	s.EndOfStream(media.TrackAudio)
	select {
	case <-s.OnEnded(media.TrackAudio):
	case <-time.After(2 * time.Second):
		t.Fatal("audio never drained")
	}
	s.Stop()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one pcm dump, got %v", entries)
	}
	fi, err := entries[0].Info()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != int64(len(pcm)*2) {
		t.Errorf("expected %v bytes written, got %v", len(pcm)*2, fi.Size())
	}
}

func TestStartValidation(t *testing.T) {
	s := newTestSink()
	if err := s.Start(0, media.Info{}); !errors.Is(err, sink.ErrNoVideoTrack) {
		t.Errorf("expected ErrNoVideoTrack for empty info, got %v", err)
	}

	conf := config.Render{}
	conf.Audio.Device = "pulse"
	bad := NewSink(conf, logger.Default())
	err := bad.Start(0, media.Info{Audio: &media.AudioInfo{Rate: 48000, Channels: 2}})
	if !errors.Is(err, sink.ErrAudioDevice) {
		t.Errorf("expected ErrAudioDevice, got %v", err)
	}

	s.Shutdown()
	if err := s.Start(0, videoInfo()); !errors.Is(err, sink.ErrShutDown) {
		t.Errorf("expected ErrShutDown, got %v", err)
	}
}

func TestAdjustRate(t *testing.T) {
	pcm := make([]int16, 32)
	if out := adjustRate(pcm, 1, true); len(out) != 32 {
		t.Errorf("nominal rate resized the chunk to %v", len(out))
	}
	if out := adjustRate(pcm, 2, true); len(out) != 16 {
		t.Errorf("expected 16 stretched samples, got %v", len(out))
	}
	if out := adjustRate(pcm, 2, false); len(out) != 16 {
		t.Errorf("expected 16 resampled samples, got %v", len(out))
	}
	if out := adjustRate(pcm, 0.5, false); len(out) != 64 {
		t.Errorf("expected 64 samples at half rate, got %v", len(out))
	}
}

func TestScaleVolume(t *testing.T) {
	pcm := []int16{256, -256, 1024, 0}
	out := scaleVolume(pcm, 0.5)
	want := []int16{128, -128, 512, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %v: expected %v, got %v", i, want[i], out[i])
		}
	}
	if pcm[0] != 256 {
		t.Error("the input chunk was modified")
	}
	if full := scaleVolume(pcm, 1); &full[0] != &pcm[0] {
		t.Error("full volume should be a pass-through")
	}
}

func TestDebugInfo(t *testing.T) {
	s := newTestSink()
	if err := s.Start(time.Second, videoInfo()); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()
	s.SetStreamName("debug me")
	s.SetVolume(0.25)

	var d sink.DebugInfo
	d.Capture.Consumers = 42
	s.DebugInfo(&d)
	if !d.Render.Started || d.Render.Volume != 0.25 || d.Render.Stream != "debug me" {
		t.Errorf("wrong render section: %+v", d.Render)
	}
	if d.Render.Position < time.Second {
		t.Errorf("position lost the start offset: %v", d.Render.Position)
	}
	if d.Capture.Consumers != 42 {
		t.Error("the capture section is not ours to touch")
	}
}
