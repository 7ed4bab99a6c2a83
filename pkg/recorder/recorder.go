package recorder

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	oss "github.com/avtools/playout/pkg/os"
	"github.com/hashicorp/go-multierror"
)

type Recording struct {
	sync.Mutex

	enabled bool

	audio audioStream
	video videoStream

	dir     string
	saveDir string
	meta    Meta
	opts    Options
	log     *logger.Logger

	vsync []time.Duration
}

// naming regexp
var (
	reDate    = regexp.MustCompile(`%date:(.*?)%`)
	reUser    = regexp.MustCompile(`%user%`)
	reSession = regexp.MustCompile(`%session%`)
	reRand    = regexp.MustCompile(`%rand:(\d+)%`)
)

// stream represent an output stream of the recording.
type stream interface {
	io.Closer
}

type audioStream interface {
	stream
	Write(data media.Audio)
}
type videoStream interface {
	stream
	Write(data media.Video)
}

// NewRecording creates a new media recorder for the capture output.
func NewRecording(meta Meta, log *logger.Logger, opts Options) *Recording {
	savePath, err := filepath.Abs(opts.Dir)
	if err != nil {
		log.Error().Err(err).Send()
	}
	if err := oss.CheckCreateDir(savePath); err != nil {
		log.Error().Err(err).Send()
	}
	return &Recording{dir: savePath, meta: meta, opts: opts, log: log, vsync: []time.Duration{}}
}

func (r *Recording) Start() {
	r.Lock()
	defer r.Unlock()
	r.enabled = true

	r.saveDir = parseName(r.opts.Name, r.opts.Session, r.meta.UserName)
	path := filepath.Join(r.dir, r.saveDir)

	r.log.Info().Msgf("[recording] path will be [%v]", path)

	if err := oss.CheckCreateDir(path); err != nil {
		r.log.Fatal().Err(err).Send()
	}

	audio, err := newWavStream(path, r.opts)
	if err != nil {
		r.log.Fatal().Err(err).Send()
		return
	}
	r.audio = audio
	video, err := newRawStream(path)
	if err != nil {
		r.log.Fatal().Err(err).Send()
		return
	}
	r.video = video
}

func (r *Recording) Stop() error {
	var result *multierror.Error
	r.Lock()
	defer r.Unlock()
	r.enabled = false
	if r.audio != nil {
		result = multierror.Append(result, r.audio.Close())
		r.audio = nil
	}
	if r.video != nil {
		result = multierror.Append(result, r.video.Close())
		r.video = nil
	}
	if r.saveDir == "" {
		return result.ErrorOrNil()
	}

	path := filepath.Join(r.dir, r.saveDir)
	result = multierror.Append(result, createMuxFile(path, videoFile, r.vsync, r.opts))

	if result.ErrorOrNil() == nil && r.opts.Zip {
		src := filepath.Join(r.dir, r.saveDir)
		dst := filepath.Join(src, "..", r.saveDir)
		log := r.log
		saved := r.opts.OnSaved
		go func() {
			if err := compress(src, dst); err != nil {
				log.Error().Err(err).Msg("error during result compress")
				return
			}
			if err := os.RemoveAll(src); err != nil {
				log.Error().Err(err).Msg("error during result compress")
			}
			if saved != nil {
				saved(dst + ".zip")
			}
		}()
	}
	r.saveDir = ""
	r.vsync = []time.Duration{}
	return result.ErrorOrNil()
}

func (r *Recording) Set(enable bool, user string) {
	r.Lock()
	r.meta.UserName = user
	if !r.enabled && enable {
		r.Unlock()
		r.Start()
		r.log.Debug().Msgf("[REC] set: +, user: %v", user)
		r.Lock()
	} else {
		if r.enabled && !enable {
			r.Unlock()
			if err := r.Stop(); err != nil {
				r.log.Error().Err(err).Msg("failed to stop recording")
			}
			r.log.Debug().Msg("recording has stopped")
			r.Lock()
		}
	}
	r.enabled = enable
	r.Unlock()
}

func (r *Recording) SetFramerate(fps float64) { r.opts.Fps = fps }
func (r *Recording) SetAudioFrequency(fq int) { r.opts.Frequency = fq }
func (r *Recording) SetSession(name string)   { r.opts.Session = name }

func (r *Recording) Enabled() bool {
	r.Lock()
	defer r.Unlock()
	return r.enabled
}

// WriteAudio drops the data silently when the streams are closed, a
// write may still race the recording stop.
func (r *Recording) WriteAudio(audio media.Audio) {
	r.Lock()
	defer r.Unlock()
	if r.audio != nil {
		r.audio.Write(audio)
	}
}

func (r *Recording) WriteVideo(frame media.Video) {
	r.Lock()
	defer r.Unlock()
	if r.video == nil {
		return
	}
	r.video.Write(frame)
	r.vsync = append(r.vsync, frame.Duration)
}

func parseName(name, session, user string) (out string) {
	if d := reDate.FindStringSubmatch(name); d != nil {
		out = reDate.ReplaceAllString(name, time.Now().Format(d[1]))
	} else {
		out = name
	}
	if rnd := reRand.FindStringSubmatch(out); rnd != nil {
		out = reRand.ReplaceAllString(out, random(rnd[1]))
	}
	out = reUser.ReplaceAllString(out, user)
	out = reSession.ReplaceAllString(out, session)
	return
}

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func random(num string) string {
	n, err := strconv.Atoi(num)
	if err != nil {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Int63()%int64(len(letterBytes))]
	}
	return string(b)
}
