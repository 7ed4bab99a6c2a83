package session

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avtools/playout/pkg/media"
)

// previewIdle is how long after the last HTTP hit the container keeps
// copying frames.
const previewIdle = 10 * time.Second

// preview retains the most recently presented frame and serves it as
// JPEG. Copying every frame is wasted work with nobody looking, so the
// retention runs only for a short period after a request; a request that
// finds the container cold triggers a redraw to refill it.
type preview struct {
	redraw func()

	want atomic.Int64 // unix nanos of the last request

	mu    sync.Mutex
	buf   []byte
	frame media.Video
	ok    bool

	thumb *media.Thumbnailer
}

func newPreview(redraw func()) *preview {
	return &preview{redraw: redraw, thumb: media.NewThumbnailer(frameMaxW, frameQuality)}
}

// SetCurrentFrame implements media.VideoContainer on the render path.
// The frame is only valid for the duration of the call, hence the copy.
func (p *preview) SetCurrentFrame(f *media.Video) {
	if f == nil || time.Since(time.Unix(0, p.want.Load())) > previewIdle {
		return
	}
	p.mu.Lock()
	p.buf = append(p.buf[:0], f.Frame...)
	p.frame = media.Video{Frame: p.buf, Stride: f.Stride, W: f.W, H: f.H, Duration: f.Duration}
	p.ok = true
	p.mu.Unlock()
}

// Reset drops the retained frame, i.e. when another session loads.
func (p *preview) Reset() {
	p.mu.Lock()
	p.ok = false
	p.mu.Unlock()
}

func (p *preview) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	cold := time.Since(time.Unix(0, p.want.Load())) > previewIdle
	p.want.Store(time.Now().UnixNano())
	if cold && p.redraw != nil {
		p.redraw()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ok {
		http.Error(w, "no frame", http.StatusNotFound)
		return
	}
	dat, err := p.thumb.Encode(&p.frame)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(dat)
}
