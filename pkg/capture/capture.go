// Package capture is the secondary sink of a playback session: it fans
// the same decoded media out to attached consumers (recorders, stream
// viewers) without ever touching perceptible playback.
package capture

import (
	"sync"
	"time"

	"github.com/avtools/playout/pkg/com"
	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/sink"
	"github.com/gofrs/uuid/v5"
)

// Consumer receives the captured media of one session.
// Callbacks arrive on the session's pump goroutine and should not block.
type Consumer interface {
	OnStart(info media.Info) error
	OnAudio(audio media.Audio)
	OnVideo(frame media.Video)
	OnStop()
}

const (
	minRate = 0.0625
	maxRate = 16
)

type Sink struct {
	mu  sync.Mutex
	log *logger.Logger

	conf      config.Capture
	consumers com.Map[string, Consumer]

	started bool
	playing bool
	shut    bool
	rate    float64

	info media.Info

	// forwarded positions on the media timeline
	aPos time.Duration
	vPos time.Duration

	aEnded chan struct{}
	vEnded chan struct{}
	aDone  bool
	vDone  bool

	name string

	audioChunks uint64
	frames      uint64
}

func NewSink(conf config.Capture, log *logger.Logger) *Sink {
	return &Sink{
		conf:      conf,
		log:       log.Mod("capture"),
		consumers: com.NewMap[string, Consumer](),
		rate:      1,
	}
}

// Attach registers a consumer and returns its id. When the sink is
// already started the consumer is notified immediately; if it rejects
// the running session, nothing is attached and the id is empty.
func (s *Sink) Attach(c Consumer) string {
	s.mu.Lock()
	started, info := s.started, s.info
	s.mu.Unlock()
	if started {
		if err := c.OnStart(info); err != nil {
			s.log.Error().Err(err).Msg("consumer rejected the session")
			return ""
		}
	}
	id := uuid.Must(uuid.NewV4()).String()
	s.consumers.Put(id, c)
	consumerCount.Set(float64(s.consumers.Len()))
	s.log.Debug().Msgf("attach %v (%v total)", id, s.consumers.Len())
	return id
}

// Detach removes a consumer; a consumer of a started session gets a
// final OnStop.
func (s *Sink) Detach(id string) {
	c := s.consumers.Pop(id)
	if c == nil {
		return
	}
	consumerCount.Set(float64(s.consumers.Len()))
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		c.OnStop()
	}
	s.log.Debug().Msgf("detach %v (%v left)", id, s.consumers.Len())
}

func (s *Sink) Start(at time.Duration, info media.Info) error {
	s.mu.Lock()
	if s.shut {
		s.mu.Unlock()
		return sink.ErrShutDown
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if !info.HasAudio() && !info.HasVideo() {
		s.mu.Unlock()
		return sink.ErrNoVideoTrack
	}
	s.mu.Unlock()

	// notify outside the state lock, consumers may call back
	var notified []Consumer
	var failed error
	s.consumers.ForEach(func(c Consumer) {
		if failed != nil {
			return
		}
		if err := c.OnStart(info); err != nil {
			failed = err
			return
		}
		notified = append(notified, c)
	})
	if failed != nil {
		for _, c := range notified {
			c.OnStop()
		}
		return failed
	}

	s.mu.Lock()
	s.info = info
	s.aPos, s.vPos = at, at
	s.aEnded, s.vEnded = nil, nil
	s.aDone, s.vDone = false, false
	if info.HasAudio() {
		s.aEnded = make(chan struct{})
	}
	if info.HasVideo() {
		s.vEnded = make(chan struct{})
	}
	s.started = true
	s.playing = true
	s.mu.Unlock()

	stretchRatio.Set(1)
	s.log.Info().Msgf("start at %v, audio: %v, video: %v", at, info.Audio, info.Video)
	return nil
}

func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.playing = false
	s.mu.Unlock()

	s.consumers.ForEach(func(c Consumer) { c.OnStop() })
	s.log.Debug().Msg("stop")
}

func (s *Sink) Shutdown() {
	s.Stop()
	s.mu.Lock()
	s.shut = true
	s.mu.Unlock()
}

func (s *Sink) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Sink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && s.playing
}

func (s *Sink) SetPlaying(playing bool) {
	s.mu.Lock()
	if s.started {
		s.playing = playing
	}
	s.mu.Unlock()
}

func (s *Sink) OnEnded(track media.TrackType) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	switch track {
	case media.TrackAudio:
		return s.aEnded
	case media.TrackVideo:
		return s.vEnded
	}
	return nil
}

func (s *Sink) EndTime(track media.TrackType) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		return s.aPos
	case media.TrackVideo:
		return s.vPos
	}
	return 0
}

// Position reports how far the forwarding has progressed; the audio
// track leads when present.
func (s *Sink) Position(at *time.Time) time.Duration {
	if at != nil {
		*at = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info.HasAudio() {
		return s.aPos
	}
	return s.vPos
}

// HasUnplayedFrames is always false: the capture path forwards
// synchronously and buffers nothing.
func (s *Sink) HasUnplayedFrames(media.TrackType) bool { return false }

func (s *Sink) UnplayedDuration(media.TrackType) time.Duration { return 0 }

// SetVolume has no effect: consumers always get full-scale PCM.
func (s *Sink) SetVolume(float64) {}

func (s *Sink) SetPlaybackRate(rate float64) {
	if rate < minRate {
		rate = minRate
	}
	if rate > maxRate {
		rate = maxRate
	}
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
	stretchRatio.Set(1 / rate)
}

func (s *Sink) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// SetPreservesPitch has no effect: captured audio is always
// time-stretched to keep consumer output on the wall clock.
func (s *Sink) SetPreservesPitch(bool) {}

// Redraw has no effect: the capture path presents nothing itself.
func (s *Sink) Redraw(media.VideoInfo) {}

// SetSecondaryVideoContainer has no effect here; extra visible
// surfaces belong to the render sink.
func (s *Sink) SetSecondaryVideoContainer(media.VideoContainer) {}

// AudioDevice reports nothing: the capture path plays no audio.
func (s *Sink) AudioDevice() *media.AudioDeviceInfo { return nil }

func (s *Sink) SetStreamName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// data plane

func (s *Sink) WriteAudio(audio media.Audio) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	rate := s.rate
	info := s.info
	s.aPos += audio.Duration
	s.audioChunks++
	s.mu.Unlock()

	out := audio
	if rate != 1 && len(audio.Data) >= 4 && info.HasAudio() {
		size := int(float64(len(audio.Data))/rate) &^ 1
		if size < 2 {
			size = 2
		}
		out.Data = media.ResampleStretch(audio.Data, size)
		out.Duration = media.SamplesDuration(size, info.Audio.Rate, info.Audio.Channels)
	}
	s.consumers.ForEach(func(c Consumer) { c.OnAudio(out) })
}

func (s *Sink) WriteVideo(frame media.Video) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	rate := s.rate
	pos := s.vPos
	s.vPos += frame.Duration
	s.frames++
	name := s.name
	overlay := s.conf.Video.Overlay
	s.mu.Unlock()

	out := frame
	if rate != 1 {
		out.Duration = time.Duration(float64(frame.Duration) / rate)
	}
	if overlay && name != "" {
		out = withLabel(out, name+" "+timeFormat(pos))
	}
	framesCaptured.Inc()
	s.consumers.ForEach(func(c Consumer) { c.OnVideo(out) })
}

// EndOfStream marks the track complete and closes its ended channel.
func (s *Sink) EndOfStream(track media.TrackType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		if s.aEnded != nil && !s.aDone {
			close(s.aEnded)
			s.aDone = true
		}
	case media.TrackVideo:
		if s.vEnded != nil && !s.vDone {
			close(s.vEnded)
			s.vDone = true
		}
	}
}

func (s *Sink) DebugInfo(d *sink.DebugInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.Capture = sink.CaptureDebug{
		Started:   s.started,
		Consumers: s.consumers.Len(),
		Audio:     s.audioChunks,
		Frames:    s.frames,
		Stream:    s.name,
	}
}
