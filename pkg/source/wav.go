package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/avtools/playout/pkg/media"
)

var ErrBadFormat = errors.New("unsupported media format")

// wavTrack reads PCM s16le out of a RIFF/WAVE file sequentially.
type wavTrack struct {
	f *os.File

	rate     int
	channels int

	start int64
	size  int64
	read  int64
}

func openWav(path string) (*wavTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	t := wavTrack{f: f}
	if err := t.parseHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &t, nil
}

// parseHeader walks the RIFF chunks up to the start of the data chunk,
// leaving the file cursor on the first sample.
func (t *wavTrack) parseHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(t.f, riff[:]); err != nil {
		return err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a RIFF/WAVE file", ErrBadFormat)
	}
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(t.f, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return fmt.Errorf("%w: no data chunk", ErrBadFormat)
			}
			return err
		}
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		switch string(chunk[0:4]) {
		case "fmt ":
			var f [16]byte
			if _, err := io.ReadFull(t.f, f[:]); err != nil {
				return err
			}
			format := binary.LittleEndian.Uint16(f[0:2])
			bits := binary.LittleEndian.Uint16(f[14:16])
			if format != 1 || bits != 16 {
				return fmt.Errorf("%w: pcm16 expected, format %v bits %v", ErrBadFormat, format, bits)
			}
			t.channels = int(binary.LittleEndian.Uint16(f[2:4]))
			t.rate = int(binary.LittleEndian.Uint32(f[4:8]))
			if t.channels == 0 || t.rate == 0 {
				return fmt.Errorf("%w: zero rate or channels", ErrBadFormat)
			}
			if size > 16 {
				if _, err := t.f.Seek(size-16, io.SeekCurrent); err != nil {
					return err
				}
			}
		case "data":
			if t.rate == 0 {
				return fmt.Errorf("%w: data before fmt chunk", ErrBadFormat)
			}
			pos, err := t.f.Seek(0, io.SeekCurrent)
			if err != nil {
				return err
			}
			t.start = pos
			t.size = size - size%int64(2*t.channels)
			return nil
		default:
			if _, err := t.f.Seek(size, io.SeekCurrent); err != nil {
				return err
			}
		}
	}
}

// next reads up to window worth of samples.
// Returns io.EOF when the data chunk is exhausted.
func (t *wavTrack) next(window time.Duration) (media.Audio, error) {
	n := media.DurationSamples(window, t.rate, t.channels) * 2
	if left := t.size - t.read; int64(n) > left {
		n = int(left)
	}
	if n <= 0 {
		return media.Audio{}, io.EOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.f, buf); err != nil {
		return media.Audio{}, err
	}
	t.read += int64(n)
	pcm := make([]int16, n/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return media.Audio{
		Data:     pcm,
		Duration: media.SamplesDuration(len(pcm), t.rate, t.channels),
	}, nil
}

// seek moves the cursor to an absolute track position.
func (t *wavTrack) seek(at time.Duration) (time.Duration, error) {
	off := int64(media.DurationSamples(at, t.rate, t.channels)) * 2
	if off > t.size {
		off = t.size
	}
	if _, err := t.f.Seek(t.start+off, io.SeekStart); err != nil {
		return 0, err
	}
	t.read = off
	return media.SamplesDuration(int(off/2), t.rate, t.channels), nil
}

func (t *wavTrack) duration() time.Duration {
	return media.SamplesDuration(int(t.size/2), t.rate, t.channels)
}

func (t *wavTrack) close() error { return t.f.Close() }
