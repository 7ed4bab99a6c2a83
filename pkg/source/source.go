// Package source reads recorded sessions from disk and yields their
// packets in presentation order for playback.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/avtools/playout/pkg/media"
)

var ErrNoMedia = errors.New("no media in the session dir")

const (
	audioFile  = "audio.wav"
	framesFile = "frames.txt"

	// defaultWindow is the PCM chunk size of one audio packet.
	defaultWindow = 20 * time.Millisecond
)

// Packet is one unit of session media, either audio or video.
type Packet struct {
	Type  media.TrackType
	Audio media.Audio
	Video media.Video
	// Time is the presentation start position of the packet.
	Time time.Duration
}

// Source is a demuxer of one recorded session.
// Not safe for concurrent use, callers serialize Read/Seek.
type Source struct {
	dir  string
	info media.Info
	meta Meta

	audio *wavTrack
	video *frameTrack

	aPos time.Duration
	vPos time.Duration

	window time.Duration
}

// Open probes a session directory for the audio and video tracks.
// Either track may be absent, only both missing is an error.
func Open(dir string) (*Source, error) {
	s := Source{dir: dir, window: defaultWindow}

	audio, err := openWav(filepath.Join(dir, audioFile))
	switch {
	case err == nil:
		// a header-only file is what the recorder leaves for a
		// session with no sound, same as no file at all
		if audio.size == 0 {
			_ = audio.close()
			break
		}
		s.audio = audio
		s.info.Audio = &media.AudioInfo{Rate: audio.rate, Channels: audio.channels}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%v: %w", audioFile, err)
	}

	video, meta, err := openFrames(filepath.Join(dir, framesFile))
	switch {
	case err == nil:
		s.meta = meta
		if len(video.entries) == 0 {
			break
		}
		s.video = video
		first := video.entries[0]
		s.info.Video = &media.VideoInfo{W: first.w, H: first.h, Fps: meta.Fps}
		if s.info.Video.Fps == 0 && video.total > 0 {
			s.info.Video.Fps = float64(len(video.entries)) / video.total.Seconds()
		}
	case !errors.Is(err, os.ErrNotExist):
		if s.audio != nil {
			_ = s.audio.close()
		}
		return nil, fmt.Errorf("%v: %w", framesFile, err)
	}

	if s.audio == nil && s.video == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMedia, dir)
	}
	return &s, nil
}

func (s *Source) Info() media.Info { return s.info }
func (s *Source) Meta() Meta       { return s.meta }
func (s *Source) Dir() string      { return s.dir }

// Duration is the total play time, the longest of the two tracks.
func (s *Source) Duration() time.Duration {
	var a, v time.Duration
	if s.audio != nil {
		a = s.audio.duration()
	}
	if s.video != nil {
		v = s.video.duration()
	}
	return s.info.TotalDuration(a, v)
}

// Read returns the next packet in presentation order.
// When the tracks are interleaved, the packet with the earlier start
// position wins and audio breaks the ties since it drives the clock.
// Returns io.EOF after the last packet of the last track.
func (s *Source) Read() (Packet, error) {
	hasAudio := s.audio != nil && s.audio.read < s.audio.size
	hasVideo := s.video != nil && s.video.cur < len(s.video.entries)

	switch {
	case hasAudio && (!hasVideo || s.aPos <= s.vPos):
		audio, err := s.audio.next(s.window)
		if err != nil {
			return Packet{}, err
		}
		p := Packet{Type: media.TrackAudio, Audio: audio, Time: s.aPos}
		s.aPos += audio.Duration
		return p, nil
	case hasVideo:
		frame, err := s.video.next()
		if err != nil {
			return Packet{}, err
		}
		p := Packet{Type: media.TrackVideo, Video: frame, Time: s.vPos}
		s.vPos += frame.Duration
		return p, nil
	}
	return Packet{}, io.EOF
}

// Seek moves both tracks to the given position and returns the exact
// position the source lands on (the audio sample grid when the session
// has audio, else the start of the enclosing frame).
func (s *Source) Seek(at time.Duration) (time.Duration, error) {
	if at < 0 {
		at = 0
	}
	pos := at
	if s.audio != nil {
		p, err := s.audio.seek(at)
		if err != nil {
			return 0, err
		}
		pos = p
		s.aPos = p
	}
	if s.video != nil {
		p := s.video.seek(at)
		s.vPos = p
		if s.audio == nil {
			pos = p
		}
	}
	return pos, nil
}

func (s *Source) Close() error {
	if s.audio != nil {
		return s.audio.close()
	}
	return nil
}
