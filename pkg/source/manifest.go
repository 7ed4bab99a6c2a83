package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avtools/playout/pkg/media"
	"github.com/avtools/playout/pkg/recorder"
)

// Meta carries the stream_meta values of a session manifest.
type Meta struct {
	Session string
	Date    string
	Fps     float64
	Freq    int
	Pix     string
}

type frameEntry struct {
	name   string
	dur    time.Duration
	w, h   int
	stride int
}

// frameTrack walks the ffconcat manifest of a session and loads raw
// RGBA frame files one by one in manifest order.
type frameTrack struct {
	dir     string
	entries []frameEntry
	cur     int
	total   time.Duration
}

func openFrames(path string) (*frameTrack, Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, err
	}
	defer func() { _ = f.Close() }()

	t := frameTrack{dir: filepath.Dir(path)}
	meta := Meta{}

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		key, rest, _ := strings.Cut(line, " ")
		switch key {
		case "ffconcat":
			// version line
		case "stream_meta":
			k, v, _ := strings.Cut(rest, " ")
			meta.set(k, strings.Trim(v, "'"))
		case "file":
			t.entries = append(t.entries, frameEntry{name: rest})
		case "duration":
			if len(t.entries) == 0 {
				return nil, meta, fmt.Errorf("%w: duration before file entry", ErrBadFormat)
			}
			sec, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return nil, meta, fmt.Errorf("%w: bad duration %q", ErrBadFormat, rest)
			}
			t.entries[len(t.entries)-1].dur = time.Duration(sec * float64(time.Second))
		case "file_packet_meta":
			if len(t.entries) == 0 {
				continue
			}
			k, v, _ := strings.Cut(rest, " ")
			t.entries[len(t.entries)-1].set(k, strings.Trim(v, "'"))
		}
	}
	if err := s.Err(); err != nil {
		return nil, meta, err
	}
	for i := range t.entries {
		e := &t.entries[i]
		if e.w == 0 || e.h == 0 || e.stride == 0 {
			e.fillFromName()
		}
		t.total += e.dur
	}
	return &t, meta, nil
}

func (m *Meta) set(key, value string) {
	switch key {
	case "session":
		m.Session = value
	case "date":
		m.Date = value
	case "fps":
		m.Fps, _ = strconv.ParseFloat(value, 64)
	case "freq":
		m.Freq, _ = strconv.Atoi(value)
	case "pix":
		m.Pix = value
	}
}

func (e *frameEntry) set(key, value string) {
	switch key {
	case "width":
		e.w, _ = strconv.Atoi(value)
	case "height":
		e.h, _ = strconv.Atoi(value)
	case "stride":
		e.stride, _ = strconv.Atoi(value)
	}
}

// fillFromName recovers frame dimensions from the recorder's file
// naming scheme when the manifest carries no packet meta.
func (e *frameEntry) fillFromName() {
	w, h, st := recorder.ExtractFileInfo(e.name)
	e.w, _ = strconv.Atoi(w)
	e.h, _ = strconv.Atoi(h)
	e.stride, _ = strconv.Atoi(st)
}

// next loads the next frame file. Returns io.EOF past the last entry.
func (t *frameTrack) next() (media.Video, error) {
	if t.cur >= len(t.entries) {
		return media.Video{}, io.EOF
	}
	e := t.entries[t.cur]
	data, err := os.ReadFile(filepath.Join(t.dir, e.name))
	if err != nil {
		return media.Video{}, fmt.Errorf("frame %v: %w", e.name, err)
	}
	t.cur++
	return media.Video{
		Frame:    data,
		Stride:   e.stride,
		W:        e.w,
		H:        e.h,
		Duration: e.dur,
	}, nil
}

// seek positions the cursor on the entry containing at.
// Returns the exact start time of that entry.
func (t *frameTrack) seek(at time.Duration) time.Duration {
	var pos time.Duration
	for i, e := range t.entries {
		if pos+e.dur > at {
			t.cur = i
			return pos
		}
		pos += e.dur
	}
	t.cur = len(t.entries)
	return pos
}

func (t *frameTrack) duration() time.Duration { return t.total }
