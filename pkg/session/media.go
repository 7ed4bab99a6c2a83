package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/com"
	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/encoder/opus"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/goccy/go-json"
)

const (
	dstHz          = 48000
	defaultFrameMs = 10

	frameMaxW    = 640
	frameQuality = 75
)

// data channel control message types
const (
	eventStart = "start"
	eventStop  = "stop"
)

// streamEvent is a control message of the viewer data channel.
// Binary messages on the channel are JPEG frames, text messages are these.
type streamEvent struct {
	T    string  `json:"t"`
	Name string  `json:"name,omitempty"`
	W    int     `json:"w,omitempty"`
	H    int     `json:"h,omitempty"`
	Fps  float64 `json:"fps,omitempty"`
	Hz   int     `json:"hz,omitempty"`
	Ch   int     `json:"ch,omitempty"`
}

// broadcaster replicates one captured session to every connected viewer.
// PCM goes through a frame buffer, an optional rate conversion to 48kHz
// and the Opus encoder; video frames are downscaled and JPEG-compressed
// once, then fanned out over the data channels.
type broadcaster struct {
	log     *logger.Logger
	viewers *com.NetMap[com.Uid, *Viewer]

	frameMs int
	kind    string

	buf      media.Buffer
	enc      *opus.Encoder
	res      media.Resampler
	stretch  bool
	dstLen   int
	frameDur time.Duration

	thumb *media.Thumbnailer

	mu   sync.Mutex
	meta streamEvent
	live bool
	name string
}

func newBroadcaster(conf config.Capture, viewers *com.NetMap[com.Uid, *Viewer], log *logger.Logger) *broadcaster {
	frameMs := conf.Audio.BufferMs
	switch frameMs {
	case 5, 10, 20, 40, 60:
	default:
		frameMs = defaultFrameMs
	}
	return &broadcaster{
		log:     log.Mod("cast"),
		viewers: viewers,
		frameMs: frameMs,
		kind:    conf.Audio.Resampler,
		thumb:   media.NewThumbnailer(frameMaxW, frameQuality),
	}
}

func (b *broadcaster) SetName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

func (b *broadcaster) OnStart(info media.Info) error {
	meta := streamEvent{T: eventStart}
	b.enc = nil
	if b.res != nil {
		_ = b.res.Close()
		b.res = nil
	}
	if info.HasAudio() {
		a := info.Audio
		if a.Rate <= 0 {
			return fmt.Errorf("broadcast: bad sample rate %v", a.Rate)
		}
		if a.Channels > 2 {
			// surround stays on the render device, the stream goes on without audio
			b.log.Warn().Msgf("audio cast off, %v channels", a.Channels)
		} else {
			enc, err := opus.NewEncoder(dstHz, a.Channels)
			if err != nil {
				return err
			}
			b.enc = enc
			b.buf = media.NewBuffer(media.FrameSamples(a.Rate, a.Channels, b.frameMs))
			b.dstLen = media.FrameSamples(dstHz, a.Channels, b.frameMs)
			b.frameDur = time.Duration(b.frameMs) * time.Millisecond
			b.stretch = a.Rate != dstHz
			if b.stretch {
				if b.kind == "sox" {
					res := media.NewResampler(b.kind)
					if err := res.Init(a.Rate, dstHz, a.Channels); err != nil {
						b.log.Warn().Err(err).Msg("sox is off, linear fallback")
					} else {
						b.res = res
					}
				}
				b.log.Debug().Msgf("resample %vHz -> %vHz", a.Rate, dstHz)
			}
			meta.Hz, meta.Ch = dstHz, a.Channels
		}
	}
	if info.HasVideo() {
		meta.W, meta.H, meta.Fps = info.Video.W, info.Video.H, info.Video.Fps
	}
	b.mu.Lock()
	meta.Name = b.name
	b.meta = meta
	b.live = true
	b.mu.Unlock()
	b.push(meta)
	return nil
}

func (b *broadcaster) OnAudio(audio media.Audio) {
	if b.enc == nil {
		return
	}
	b.buf.Write(audio.Data, func(pcm media.Samples) {
		if b.stretch {
			pcm = b.resample(pcm)
		}
		dat, err := b.enc.Encode(pcm)
		if err != nil {
			b.log.Error().Err(err).Msg("opus encode fail")
			return
		}
		if len(dat) == 0 {
			return
		}
		b.viewers.ForEach(func(v *Viewer) {
			if v.Connected() {
				v.SendAudio(dat, int32(b.frameDur))
			}
		})
		audioFramesCast.Inc()
	})
}

// resample converts one source frame to the destination frame length.
// The quality backend counts only when it yields an exact frame, Opus
// takes nothing else.
func (b *broadcaster) resample(pcm media.Samples) media.Samples {
	if b.res != nil {
		if out := b.res.Resample(pcm, b.dstLen); len(out) == b.dstLen {
			return out
		}
	}
	return media.ResampleStretch(pcm, b.dstLen)
}

func (b *broadcaster) OnVideo(frame media.Video) {
	if b.viewers.IsEmpty() {
		return
	}
	dat, err := b.thumb.Encode(&frame)
	if err != nil {
		b.log.Error().Err(err).Msg("frame compress fail")
		return
	}
	b.viewers.ForEach(func(v *Viewer) {
		if v.Connected() {
			v.SendFrame(dat)
		}
	})
	framesCast.Inc()
}

func (b *broadcaster) OnStop() {
	b.mu.Lock()
	b.live = false
	b.mu.Unlock()
	b.push(streamEvent{T: eventStop})
}

// push ships a control message to every connected viewer.
func (b *broadcaster) push(ev streamEvent) {
	dat, err := json.Marshal(ev)
	if err != nil {
		return
	}
	text := string(dat)
	b.viewers.ForEach(func(v *Viewer) {
		if v.Connected() {
			v.SendText(text)
		}
	})
}

// hello ships the current stream meta to one viewer right after its
// data channel opens, so late joiners don't wait for the next start.
func (b *broadcaster) hello(v *Viewer) {
	b.mu.Lock()
	live, meta := b.live, b.meta
	b.mu.Unlock()
	if !live {
		return
	}
	if dat, err := json.Marshal(meta); err == nil {
		v.SendText(string(dat))
	}
}
