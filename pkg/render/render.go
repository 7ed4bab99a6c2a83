// Package render is the primary sink of a playback session: it owns the
// master clock, paces the decoded media out of bounded queues, presents
// frames to the attached video containers, and writes PCM to an audio
// device.
package render

import (
	"fmt"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/sink"
)

const (
	audioQueueLimit = 256
	videoQueueLimit = 180

	minRate = 0.0625
	maxRate = 16
)

type Sink struct {
	mu  sync.Mutex
	log *logger.Logger

	conf config.Render
	info media.Info

	started bool
	playing bool
	shut    bool

	rate   float64
	volume float64
	pitch  bool

	// the clock anchor: media position anchorPos at wall time anchorAt
	anchorPos time.Duration
	anchorAt  time.Time
	// last known position, reported while stopped
	pos time.Duration

	aq *queue[media.Audio]
	vq *queue[media.Video]

	device Device
	ahead  time.Duration

	main      media.VideoContainer
	secondary media.VideoContainer
	last      media.Video
	hasLast   bool

	name string

	done chan struct{}
	wg   sync.WaitGroup
}

func NewSink(conf config.Render, log *logger.Logger) *Sink {
	return &Sink{
		conf:   conf,
		log:    log.Mod("render"),
		rate:   1,
		volume: 1,
		pitch:  true,
		ahead:  time.Duration(conf.Audio.BufferMs) * time.Millisecond,
	}
}

// SetVideoContainer attaches the principal visible surface.
func (s *Sink) SetVideoContainer(c media.VideoContainer) {
	s.mu.Lock()
	s.main = c
	s.mu.Unlock()
}

func (s *Sink) Start(at time.Duration, info media.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shut {
		return sink.ErrShutDown
	}
	if s.started {
		return nil
	}
	if !info.HasAudio() && !info.HasVideo() {
		return sink.ErrNoVideoTrack
	}

	if info.HasAudio() {
		device, err := openDevice(s.conf.Audio.Device, s.conf.Audio.Dir, *info.Audio)
		if err != nil {
			return fmt.Errorf("%w: %v", sink.ErrAudioDevice, err)
		}
		s.device = device
		s.aq = newQueue[media.Audio](audioQueueLimit, at)
	}
	if info.HasVideo() {
		s.vq = newQueue[media.Video](videoQueueLimit, at)
	}

	s.info = info
	s.anchorPos = at
	s.anchorAt = time.Now()
	s.pos = at
	s.started = true
	s.playing = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.done, s.interval(info))

	s.log.Info().Msgf("start at %v, audio: %v, video: %v", at, info.Audio, info.Video)
	return nil
}

// interval picks the pacing tick: the frame interval when the session
// has video, else an audio-sized slice.
func (s *Sink) interval(info media.Info) time.Duration {
	fps := s.conf.Video.Fps
	if info.HasVideo() && info.Video.Fps > 0 {
		fps = info.Video.Fps
	}
	if !info.HasVideo() || fps <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / fps)
}

func (s *Sink) loop(done chan struct{}, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick pushes everything due at the current position out.
func (s *Sink) tick() {
	s.mu.Lock()
	if !s.started || !s.playing {
		s.mu.Unlock()
		return
	}
	pos := s.position(nil)
	aq, vq := s.aq, s.vq
	device := s.device
	volume, rate, pitch := s.volume, s.rate, s.pitch
	main, secondary := s.main, s.secondary
	s.mu.Unlock()

	if aq != nil {
		for _, e := range aq.popDue(pos + s.ahead) {
			pcm := scaleVolume(adjustRate(e.data.Data, rate, pitch), volume)
			if err := device.Write(pcm); err != nil {
				s.log.Error().Err(err).Msg("audio device write failed")
			}
			samplesWritten.Add(float64(len(pcm)))
		}
	}
	if vq != nil {
		if due := vq.popDue(pos); len(due) > 0 {
			if n := len(due) - 1; n > 0 {
				framesDropped.Add(float64(n))
			}
			s.present(due[len(due)-1].data, main, secondary)
		}
	}
}

func (s *Sink) present(frame media.Video, main, secondary media.VideoContainer) {
	if main != nil {
		main.SetCurrentFrame(&frame)
	}
	if secondary != nil {
		secondary.SetCurrentFrame(&frame)
	}
	framesPresented.Inc()
	s.mu.Lock()
	s.last = frame
	s.hasLast = true
	s.mu.Unlock()
}

// adjustRate converts one PCM chunk to the nominal output rate.
// With pitch preservation the samples are stretched in time, otherwise
// linearly resampled (the classic chipmunk effect).
func adjustRate(pcm []int16, rate float64, pitch bool) []int16 {
	if rate == 1 || len(pcm) < 4 {
		return pcm
	}
	size := int(float64(len(pcm))/rate) &^ 1
	if size < 2 {
		size = 2
	}
	if pitch {
		return media.ResampleStretch(pcm, size)
	}
	out := make([]int16, size)
	media.ResampleLinear(out, pcm)
	return out
}

// scaleVolume returns pcm attenuated by volume. The input is shared
// with the capture path, so scaling always copies.
func scaleVolume(pcm []int16, volume float64) []int16 {
	if volume == 1 {
		return pcm
	}
	out := make([]int16, len(pcm))
	v := int32(volume * 256)
	for i, s := range pcm {
		out[i] = int16(int32(s) * v >> 8)
	}
	return out
}

func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.pos = s.position(nil)
	s.started = false
	s.playing = false
	pos := s.pos
	done := s.done
	aq, vq := s.aq, s.vq
	device := s.device
	s.aq, s.vq = nil, nil
	s.device = nil
	s.mu.Unlock()

	close(done)
	if aq != nil {
		aq.close()
	}
	if vq != nil {
		vq.close()
	}
	s.wg.Wait()
	if device != nil {
		if err := device.Close(); err != nil {
			s.log.Error().Err(err).Msg("audio device close failed")
		}
	}
	s.log.Debug().Msgf("stop at %v", pos)
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
	defer s.mu.Unlock()
	if !s.started || s.playing == playing {
		return
	}
	if playing {
		s.anchorAt = time.Now()
	} else {
		s.anchorPos = s.position(nil)
	}
	s.playing = playing
}

// position is the clock function. Callers hold the lock.
func (s *Sink) position(at *time.Time) time.Duration {
	now := time.Now()
	if at != nil {
		*at = now
	}
	if !s.started {
		return s.pos
	}
	if !s.playing {
		return s.anchorPos
	}
	return s.anchorPos + time.Duration(float64(now.Sub(s.anchorAt))*s.rate)
}

func (s *Sink) Position(at *time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position(at)
}

// SetPlaybackRate re-anchors the clock so the position stays continuous
// across the rate change.
func (s *Sink) SetPlaybackRate(rate float64) {
	if rate < minRate {
		rate = minRate
	}
	if rate > maxRate {
		rate = maxRate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorPos = s.position(nil)
	s.anchorAt = time.Now()
	s.rate = rate
}

func (s *Sink) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *Sink) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
}

func (s *Sink) SetPreservesPitch(on bool) {
	s.mu.Lock()
	s.pitch = on
	s.mu.Unlock()
}

func (s *Sink) OnEnded(track media.TrackType) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		if s.aq != nil {
			return s.aq.ended
		}
	case media.TrackVideo:
		if s.vq != nil {
			return s.vq.ended
		}
	}
	return nil
}

func (s *Sink) EndTime(track media.TrackType) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		if s.aq != nil {
			return s.aq.endTime()
		}
	case media.TrackVideo:
		if s.vq != nil {
			return s.vq.endTime()
		}
	}
	return 0
}

func (s *Sink) HasUnplayedFrames(track media.TrackType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		return s.aq != nil && s.aq.size() > 0
	case media.TrackVideo:
		return s.vq != nil && s.vq.size() > 0
	}
	return false
}

func (s *Sink) UnplayedDuration(track media.TrackType) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		if s.aq != nil {
			return s.aq.duration()
		}
	case media.TrackVideo:
		if s.vq != nil {
			return s.vq.duration()
		}
	}
	return 0
}

// Redraw presents the most recent frame again, i.e. after a container
// swap or a geometry change.
func (s *Sink) Redraw(info media.VideoInfo) {
	s.mu.Lock()
	frame, ok := s.last, s.hasLast
	main, secondary := s.main, s.secondary
	s.mu.Unlock()
	if !ok {
		return
	}
	s.log.Debug().Msgf("redraw %v", info)
	s.present(frame, main, secondary)
}

func (s *Sink) SetSecondaryVideoContainer(c media.VideoContainer) {
	s.mu.Lock()
	s.secondary = c
	s.mu.Unlock()
}

func (s *Sink) AudioDevice() *media.AudioDeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return nil
	}
	return s.device.Info()
}

func (s *Sink) SetStreamName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// data plane

func (s *Sink) WriteAudio(audio media.Audio) {
	s.mu.Lock()
	q := s.aq
	s.mu.Unlock()
	if q != nil {
		q.push(audio, audio.Duration)
	}
}

func (s *Sink) WriteVideo(frame media.Video) {
	s.mu.Lock()
	q := s.vq
	s.mu.Unlock()
	if q != nil {
		q.push(frame, frame.Duration)
	}
}

// EndOfStream declares the track complete; its ended channel closes
// when the queue drains.
func (s *Sink) EndOfStream(track media.TrackType) {
	s.mu.Lock()
	aq, vq := s.aq, s.vq
	s.mu.Unlock()
	switch track {
	case media.TrackAudio:
		if aq != nil {
			aq.markEnd()
		}
	case media.TrackVideo:
		if vq != nil {
			vq.markEnd()
		}
	}
}

func (s *Sink) DebugInfo(d *sink.DebugInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.Render = sink.RenderDebug{
		Started:  s.started,
		Playing:  s.started && s.playing,
		Rate:     s.rate,
		Volume:   s.volume,
		Pitch:    s.pitch,
		Position: s.position(nil),
		Stream:   s.name,
	}
	if s.aq != nil {
		d.Render.AudioQueue = s.aq.size()
	}
	if s.vq != nil {
		d.Render.VideoQueue = s.vq.size()
	}
	if s.device != nil {
		if info := s.device.Info(); info != nil {
			d.Render.Device = info.Name
		}
	}
}
