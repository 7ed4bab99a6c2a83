package session

import (
	"sync"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/recorder"
)

// recordSink adapts the recorder to the capture consumer contract.
// The recorder itself opens on session start only while armed; arming it
// mid-session toggles the files right away.
type recordSink struct {
	rec *recorder.Recording
	log *logger.Logger

	mu    sync.Mutex
	armed bool
	user  string
}

func newRecordSink(conf config.Recording, log *logger.Logger, onSaved func(path string)) *recordSink {
	rec := recorder.NewRecording(
		recorder.Meta{},
		log,
		recorder.Options{
			Dir:     conf.Folder,
			Name:    conf.Name,
			Vsync:   true,
			Zip:     conf.Zip,
			OnSaved: onSaved,
		})
	return &recordSink{rec: rec, log: log, armed: conf.Enabled}
}

// Arm requests recording for the running and any following sessions;
// when a session is live the toggle applies immediately.
func (r *recordSink) Arm(active bool, user string, live bool) {
	r.mu.Lock()
	r.armed, r.user = active, user
	r.mu.Unlock()
	if live {
		r.rec.Set(active, user)
	}
}

func (r *recordSink) Recording() bool { return r.rec.Enabled() }

// SetSession renames the recording target before the streams open.
func (r *recordSink) SetSession(name string) { r.rec.SetSession(name) }

func (r *recordSink) OnStart(info media.Info) error {
	if info.HasAudio() {
		r.rec.SetAudioFrequency(info.Audio.Rate)
	}
	if info.HasVideo() {
		r.rec.SetFramerate(info.Video.Fps)
	}
	r.mu.Lock()
	armed, user := r.armed, r.user
	r.mu.Unlock()
	if armed {
		r.rec.Set(true, user)
	}
	return nil
}

func (r *recordSink) OnAudio(audio media.Audio) {
	if r.rec.Enabled() {
		r.rec.WriteAudio(audio)
	}
}

func (r *recordSink) OnVideo(frame media.Video) {
	if r.rec.Enabled() {
		r.rec.WriteVideo(frame)
	}
}

func (r *recordSink) OnStop() {
	r.mu.Lock()
	user := r.user
	r.mu.Unlock()
	r.rec.Set(false, user)
}
