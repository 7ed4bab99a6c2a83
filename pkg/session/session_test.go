package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/recorder"
)

const (
	testRate   = 44100
	frameTick  = 16 * time.Millisecond
	windowSize = 1764 // 20ms of 44100Hz stereo
)

// writeSession records a small session through the recorder, so the
// playback is tested against the actual writer output.
func writeSession(t *testing.T, frames, chunks int) string {
	t.Helper()
	dir := t.TempDir()
	rec := recorder.NewRecording(
		recorder.Meta{UserName: "test"},
		logger.Default(),
		recorder.Options{
			Dir:       dir,
			Fps:       60,
			Frequency: testRate,
			Name:      "sess",
			Session:   "test_session",
			Vsync:     true,
		})
	rec.Set(true, "test")
	for i := 0; i < frames; i++ {
		rec.WriteVideo(media.Video{
			Frame:    make([]byte, 16*16*4),
			Stride:   16 * 4,
			W:        16,
			H:        16,
			Duration: frameTick,
		})
	}
	for i := 0; i < chunks; i++ {
		pcm := make([]int16, windowSize)
		for j := range pcm {
			pcm[j] = int16(i)
		}
		rec.WriteAudio(media.Audio{Data: pcm, Duration: 20 * time.Millisecond})
	}
	if err := rec.Stop(); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "sess")
}

func testConf(t *testing.T) config.PlayoutConfig {
	t.Helper()
	return config.PlayoutConfig{
		Playout:   config.Playout{Rate: 1},
		Recording: config.Recording{Folder: t.TempDir(), Name: "take_%rand:4%"},
	}
}

func waitStopped(t *testing.T, s *Session, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for s.IsStarted() {
		if time.Now().After(deadline) {
			t.Fatal("playback hasn't stopped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlaythrough(t *testing.T) {
	dir := writeSession(t, 5, 5)
	s := New(testConf(t), logger.Default())
	defer s.Shutdown()

	if err := s.Play(); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := s.Load(dir); err != nil {
		t.Fatal(err)
	}
	if name := s.Loaded(); name != "test_session" {
		t.Errorf("wrong session name: %v", name)
	}
	if d := s.Duration(); d != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", d)
	}

	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	if !s.IsStarted() || !s.IsPlaying() {
		t.Error("expected a running playback")
	}
	// the playback is wall-clock paced, let it run dry
	waitStopped(t, s, 3*time.Second)
	if pos := s.Position(); pos != 0 {
		t.Errorf("expected a rewind after the end, got %v", pos)
	}

	// replays from the start
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	if s.IsStarted() {
		t.Error("expected a stop")
	}
}

func TestSeekKeepsPause(t *testing.T) {
	s := New(testConf(t), logger.Default())
	defer s.Shutdown()
	if err := s.Load(writeSession(t, 5, 5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	s.SetPlaying(false)

	pos, err := s.Seek(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 50*time.Millisecond {
		t.Errorf("expected the exact 50ms landing, got %v", pos)
	}
	if !s.IsStarted() {
		t.Error("seek dropped the playback")
	}
	if s.IsPlaying() {
		t.Error("seek dropped the pause")
	}
	// the clock may tick a bit between the restart and the pause
	if got := s.Position(); got < 50*time.Millisecond || got > 60*time.Millisecond {
		t.Errorf("expected a position around 50ms, got %v", got)
	}

	s.Stop()
	if got := s.Position(); got != 0 {
		t.Errorf("expected 0 after stop, got %v", got)
	}
}

func TestSeekStopped(t *testing.T) {
	s := New(testConf(t), logger.Default())
	defer s.Shutdown()

	if _, err := s.Seek(time.Second); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := s.Load(writeSession(t, 5, 5)); err != nil {
		t.Fatal(err)
	}
	// seek before play primes the start offset
	pos, err := s.Seek(40 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 40*time.Millisecond || s.IsStarted() {
		t.Errorf("expected a primed stopped session at 40ms, got %v started=%v", pos, s.IsStarted())
	}
	if got := s.Position(); got != 40*time.Millisecond {
		t.Errorf("expected the primed position, got %v", got)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	waitStopped(t, s, 3*time.Second)
}

func TestAutoRecord(t *testing.T) {
	conf := testConf(t)
	conf.Recording.Enabled = true
	s := New(conf, logger.Default())
	defer s.Shutdown()

	if err := s.Load(writeSession(t, 5, 5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(); err != nil {
		t.Fatal(err)
	}
	if !s.Recording() {
		t.Error("expected recording on with the enabled config")
	}
	waitStopped(t, s, 3*time.Second)
	if s.Recording() {
		t.Error("expected recording off after the end")
	}
	takes, err := filepath.Glob(filepath.Join(conf.Recording.Folder, "*", "audio.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if len(takes) == 0 {
		t.Error("no recorded take on disk")
	}
}

func TestDebugDump(t *testing.T) {
	s := New(testConf(t), logger.Default())
	defer s.Shutdown()
	if err := s.Load(writeSession(t, 2, 2)); err != nil {
		t.Fatal(err)
	}
	d := s.DebugInfo()
	if d.Session != "test_session" || d.Playing || d.Rate != 1 || d.Viewers != 0 {
		t.Errorf("wrong debug dump: %+v", d)
	}
	if d.Duration != 0.04 {
		t.Errorf("expected 40ms duration, got %v", d.Duration)
	}
}
