// Package session glues a recorded media source to the composite sink
// and fans the playback out to the connected viewers.
package session

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/api"
	"github.com/avtools/playout/pkg/capture"
	"github.com/avtools/playout/pkg/com"
	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/network"
	"github.com/avtools/playout/pkg/render"
	"github.com/avtools/playout/pkg/sink"
	"github.com/avtools/playout/pkg/source"
	"github.com/avtools/playout/pkg/storage"

	"github.com/gofrs/uuid/v5"
)

var ErrNoSession = errors.New("no session loaded")

// Session drives one recorded playback through both sinks at once.
//
// The render sink paces the pipeline: the pump blocks on its queues
// while the capture sink gets the same packets write-through, so the
// viewers and the recorder never run ahead of the audio device.
type Session struct {
	id   string
	conf config.PlayoutConfig
	log  *logger.Logger

	render  *render.Sink
	capture *capture.Sink
	mux     *sink.Mux

	viewers com.NetMap[com.Uid, *Viewer]
	cast    *broadcaster
	rec     *recordSink
	prev    *preview
	store   storage.Storage

	// ctl serializes state transitions (load/play/stop/seek),
	// mu guards the fields below it.
	ctl sync.Mutex
	mu  sync.Mutex

	src  *source.Source
	name string
	// at is the position the next start happens from.
	at   time.Duration
	stop chan struct{}
	done chan struct{}
}

func New(conf config.PlayoutConfig, log *logger.Logger) *Session {
	id := uuid.Must(uuid.NewV4()).String()
	s := &Session{
		id:   id,
		conf: conf,
		log:  log.Extend(log.With().Str("sid", id[:8])),
	}
	s.render = render.NewSink(conf.Render, s.log)
	s.capture = capture.NewSink(conf.Capture, s.log)
	s.mux = sink.NewMux(s.render, s.capture)

	s.viewers = com.NewNetMap[com.Uid, *Viewer]()
	s.cast = newBroadcaster(conf.Capture, &s.viewers, s.log)
	s.capture.Attach(s.cast)
	s.rec = newRecordSink(conf.Recording, s.log, s.upload)
	s.capture.Attach(s.rec)

	s.prev = newPreview(func() { s.Redraw() })
	s.mux.SetSecondaryVideoContainer(s.prev)

	store, err := storage.Store(conf.Storage, s.log)
	if err != nil {
		s.log.Error().Err(err).Msg("cloud save is off")
		store = storage.Nop{}
	}
	s.store = store

	if conf.Playout.Rate > 0 && conf.Playout.Rate != 1 {
		s.mux.SetPlaybackRate(conf.Playout.Rate)
	}
	return s
}

func (s *Session) Id() string { return s.id }

// Preview is the still frame endpoint of the current playback.
func (s *Session) Preview() http.Handler { return s.prev }

// Load mounts a recorded session directory and rewinds to the start.
// A running playback is stopped first.
func (s *Session) Load(dir string) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt()

	src, err := source.Open(dir)
	if err != nil {
		return err
	}
	name := filepath.Base(src.Dir())
	if m := src.Meta(); m.Session != "" {
		name = m.Session
	}

	s.mu.Lock()
	old := s.src
	s.src, s.name, s.at = src, name, 0
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	s.prev.Reset()
	s.mux.SetStreamName(name)
	s.cast.SetName(name)
	s.rec.SetSession(name)
	s.log.Info().Msgf("open [%v], %v", name, src.Duration())
	return nil
}

// Play starts the playback from the current position, or resumes it
// when the session is already on and just paused.
func (s *Session) Play() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	if s.mux.IsStarted() {
		s.mux.SetPlaying(true)
		return nil
	}
	return s.start()
}

// start spins both sinks and the pump at the current position.
// Callers hold ctl.
func (s *Session) start() error {
	s.mu.Lock()
	src, at := s.src, s.at
	s.mu.Unlock()
	if src == nil {
		return ErrNoSession
	}

	at, err := src.Seek(at)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.at = at
	s.mu.Unlock()

	info := src.Info()
	if err := s.mux.Start(at, info); err != nil {
		s.mux.Stop()
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.mu.Lock()
	s.stop, s.done = stop, done
	s.mu.Unlock()

	go s.pump(src, stop, done)
	go s.watch(info, stop, done)
	sessionsPlayed.Inc()
	s.log.Info().Msgf("play at %v", at)
	return nil
}

// pump feeds both sinks in presentation order, render first. A full
// render queue blocks the push and that paces the capture side too.
func (s *Session) pump(src *source.Source, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		p, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.log.Error().Err(err).Msg("source read failed")
			break
		}
		switch p.Type {
		case media.TrackAudio:
			s.render.WriteAudio(p.Audio)
			s.capture.WriteAudio(p.Audio)
		case media.TrackVideo:
			s.render.WriteVideo(p.Video)
			s.capture.WriteVideo(p.Video)
		}
	}
	for _, t := range []media.TrackType{media.TrackAudio, media.TrackVideo} {
		s.render.EndOfStream(t)
		s.capture.EndOfStream(t)
	}
}

// watch waits for the pump to run dry and the render sink to drain
// what is queued, then tears the playback down and rewinds.
func (s *Session) watch(info media.Info, stop, done chan struct{}) {
	select {
	case <-stop:
		return
	case <-done:
	}
	for _, t := range []media.TrackType{media.TrackAudio, media.TrackVideo} {
		if t == media.TrackAudio && !info.HasAudio() {
			continue
		}
		if t == media.TrackVideo && !info.HasVideo() {
			continue
		}
		ended := s.mux.OnEnded(t)
		if ended == nil {
			continue
		}
		select {
		case <-ended:
			s.notify(api.SessionEnded, api.SessionEndedNotice{Track: t.String()})
		case <-stop:
			return
		}
	}
	select {
	case <-stop:
		return
	default:
	}
	s.log.Info().Msg("played to the end")
	s.Stop()
}

// Stop halts the playback and rewinds to the start. No-op when the
// session is not on.
func (s *Session) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	if !s.halt() {
		return
	}
	s.rewind()
	s.notify(api.SessionClosed, api.SessionClosedNotice{Session: s.Loaded()})
}

// halt stops the pump and both sinks. Returns false when nothing ran.
// Callers hold ctl.
func (s *Session) halt() bool {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return false
	}
	close(stop)
	// closing the sink queues unblocks a pump stuck on a full one
	s.mux.Stop()
	<-done
	return true
}

func (s *Session) rewind() {
	s.mu.Lock()
	src := s.src
	s.at = 0
	s.mu.Unlock()
	if src != nil {
		if _, err := src.Seek(0); err != nil {
			s.log.Error().Err(err).Msg("rewind failed")
		}
	}
}

// Seek jumps to the given position and keeps the play/pause state of
// a running playback. Returns the exact position landed on, which is
// the enclosing sample or frame boundary.
func (s *Session) Seek(at time.Duration) (time.Duration, error) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	src := s.src
	s.mu.Unlock()
	if src == nil {
		return 0, ErrNoSession
	}

	wasOn := s.mux.IsStarted()
	wasPlaying := s.mux.IsPlaying()
	s.halt()

	pos, err := src.Seek(at)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.at = pos
	s.mu.Unlock()

	if wasOn {
		if err := s.start(); err != nil {
			return pos, err
		}
		if !wasPlaying {
			s.mux.SetPlaying(false)
		}
	}
	s.log.Debug().Msgf("seek %v -> %v", at, pos)
	return pos, nil
}

func (s *Session) SetPlaying(playing bool)      { s.mux.SetPlaying(playing) }
func (s *Session) SetPlaybackRate(rate float64) { s.mux.SetPlaybackRate(rate) }
func (s *Session) SetVolume(volume float64)     { s.mux.SetVolume(volume) }
func (s *Session) SetPreservesPitch(on bool)    { s.mux.SetPreservesPitch(on) }

func (s *Session) IsStarted() bool       { return s.mux.IsStarted() }
func (s *Session) IsPlaying() bool       { return s.mux.IsPlaying() }
func (s *Session) PlaybackRate() float64 { return s.mux.PlaybackRate() }

// Position is the current playback position, or the pending start
// position when the session is stopped.
func (s *Session) Position() time.Duration {
	if s.mux.IsStarted() {
		return s.mux.Position(nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return 0
	}
	return s.src.Duration()
}

// Loaded is the name of the mounted session, empty when none is.
func (s *Session) Loaded() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Redraw re-presents the last shown frame into the video containers.
func (s *Session) Redraw() {
	s.mu.Lock()
	src := s.src
	s.mu.Unlock()
	if src == nil {
		return
	}
	if vi := src.Info().Video; vi != nil {
		s.mux.Redraw(*vi)
	}
}

// SetRecording toggles the take capture, effective immediately when
// the session is mid-playback.
func (s *Session) SetRecording(active bool, user string) {
	s.rec.Arm(active, user, s.capture.IsStarted())
	s.log.Info().Msgf("record: %v, by %v", active, user)
}

func (s *Session) Recording() bool { return s.rec.Recording() }

// upload pushes a finished recording archive to the cloud store.
// Runs on the recorder's zip goroutine.
func (s *Session) upload(path string) {
	if _, ok := s.store.(storage.Nop); ok {
		return
	}
	retry := network.NewRetry()
	for i := 0; i < 3; i++ {
		dest, err := s.store.Save(path)
		if err == nil {
			s.log.Info().Msgf("recording saved to %v", dest)
			return
		}
		s.log.Error().Err(err).Msgf("recording save failed, try %v", i+1)
		retry.Fail()
	}
}

// AddViewer registers a connected socket in the fan-out set.
func (s *Session) AddViewer(v *Viewer) {
	s.viewers.Add(v)
	viewersOnline.Set(float64(s.viewers.Len()))
}

func (s *Session) RemoveViewer(v *Viewer) {
	s.viewers.Remove(v)
	viewersOnline.Set(float64(s.viewers.Len()))
	v.Disconnect()
}

// Greet replays the current stream meta to a late joiner, so it won't
// sit on a blank player until the next stream start.
func (s *Session) Greet(v *Viewer) { s.cast.hello(v) }

// DropViewers disconnects every connected viewer. Their sockets are
// hijacked from the HTTP server, so its shutdown won't close them.
func (s *Session) DropViewers() {
	s.viewers.ForEach(func(v *Viewer) { v.Disconnect() })
}

func (s *Session) notify(t api.PT, pl any) {
	s.viewers.ForEach(func(v *Viewer) {
		if err := v.Send(uint8(t), pl); err != nil {
			s.log.Debug().Err(err).Msgf("%v push failed", t)
		}
	})
}

// DebugInfo dumps the state of the session and both sinks.
func (s *Session) DebugInfo() api.GetDebugResponse {
	var d sink.DebugInfo
	s.mux.DebugInfo(&d)
	return api.GetDebugResponse{
		Session:  s.Loaded(),
		Position: s.Position().Seconds(),
		Duration: s.Duration().Seconds(),
		Playing:  s.mux.IsPlaying(),
		Rate:     s.mux.PlaybackRate(),
		Viewers:  s.viewers.Len(),
		Sink:     d,
	}
}

// Shutdown stops the playback and releases the sinks and the source.
// The capture consumers get their final OnStop, which also closes a
// recording in progress.
func (s *Session) Shutdown() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt()
	s.mux.Shutdown()
	s.mu.Lock()
	src := s.src
	s.src = nil
	s.mu.Unlock()
	if src != nil {
		_ = src.Close()
	}
}
