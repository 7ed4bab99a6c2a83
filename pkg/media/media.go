// Package media defines the AV primitives shared by every output path:
// track descriptors, PCM/frame chunks, and the duration math for both.
package media

import (
	"fmt"
	"time"
)

type TrackType uint8

const (
	TrackNone TrackType = iota
	TrackAudio
	TrackVideo
)

func (t TrackType) String() string {
	switch t {
	case TrackAudio:
		return "audio"
	case TrackVideo:
		return "video"
	}
	return "none"
}

// AudioInfo describes a PCM track: signed 16-bit LE interleaved samples.
type AudioInfo struct {
	Rate     int
	Channels int
}

// VideoInfo describes a video track of packed RGBA frames.
type VideoInfo struct {
	W, H int
	Fps  float64
}

func (a AudioInfo) String() string { return fmt.Sprintf("%vHz/%vch", a.Rate, a.Channels) }
func (v VideoInfo) String() string { return fmt.Sprintf("%vx%v@%.1f", v.W, v.H, v.Fps) }

// Info describes the media of one playback session.
// A nil track pointer means the track is absent.
type Info struct {
	Audio *AudioInfo
	Video *VideoInfo
}

func (i Info) HasAudio() bool { return i.Audio != nil }
func (i Info) HasVideo() bool { return i.Video != nil }

// Audio is one chunk of decoded PCM.
type Audio struct {
	Data     []int16
	Duration time.Duration
}

// Video is one decoded frame.
type Video struct {
	Frame    []byte
	Stride   int
	W, H     int
	Duration time.Duration
}

// AudioDeviceInfo describes an audio output the render path writes to.
type AudioDeviceInfo struct {
	ID       string
	Name     string
	Channels int
	Rate     int
}

// VideoContainer is an extra visible surface fed with the frames a sink
// presents. The frame pointer is only valid for the duration of the call.
type VideoContainer interface {
	SetCurrentFrame(*Video)
}

// SamplesDuration converts an interleaved PCM sample count to play time.
func SamplesDuration(n, rate, channels int) time.Duration {
	if rate == 0 || channels == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate*channels)
}

// DurationSamples is the inverse of SamplesDuration, channel-aligned.
func DurationSamples(d time.Duration, rate, channels int) int {
	n := int(d * time.Duration(rate*channels) / time.Second)
	return n - n%channels
}

// TotalDuration picks the largest end position among the present tracks.
func (i Info) TotalDuration(audio, video time.Duration) time.Duration {
	var total time.Duration
	if i.HasAudio() && audio > total {
		total = audio
	}
	if i.HasVideo() && video > total {
		total = video
	}
	return total
}
