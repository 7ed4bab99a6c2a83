package render

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avtools/playout/pkg/media"
	oss "github.com/avtools/playout/pkg/os"
)

// Device is an audio output the sink writes due PCM into.
type Device interface {
	// Info describes the open output, nil for a discarding device.
	Info() *media.AudioDeviceInfo
	Write(pcm []int16) error
	Close() error
}

// openDevice maps the configured device name to an output:
// an empty name discards the samples (timing only), "file" writes raw
// s16le PCM into the configured dir, anything else is unknown.
func openDevice(kind, dir string, info media.AudioInfo) (Device, error) {
	switch kind {
	case "":
		return nullDevice{}, nil
	case "file":
		return newFileDevice(dir, info)
	}
	return nil, fmt.Errorf("unknown audio device %q", kind)
}

type nullDevice struct{}

func (nullDevice) Info() *media.AudioDeviceInfo { return nil }
func (nullDevice) Write([]int16) error          { return nil }
func (nullDevice) Close() error                 { return nil }

// fileDevice dumps everything played into one raw PCM file, playable
// with ffplay -f s16le -ar <rate> -ch_layout stereo <file>.
type fileDevice struct {
	f    *os.File
	w    *bufio.Writer
	info media.AudioDeviceInfo
}

func newFileDevice(dir string, info media.AudioInfo) (*fileDevice, error) {
	if err := oss.CheckCreateDir(dir); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, fmt.Sprintf("out_%v_%v.pcm", time.Now().Format("20060102_150405"), info.Rate))
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &fileDevice{
		f: f,
		w: bufio.NewWriterSize(f, 1<<16),
		info: media.AudioDeviceInfo{
			ID:       "file",
			Name:     name,
			Channels: info.Channels,
			Rate:     info.Rate,
		},
	}, nil
}

func (d *fileDevice) Info() *media.AudioDeviceInfo { return &d.info }

func (d *fileDevice) Write(pcm []int16) error {
	bs := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(bs[i*2:i*2+2], uint16(s))
	}
	_, err := d.w.Write(bs)
	return err
}

func (d *fileDevice) Close() error {
	if err := d.w.Flush(); err != nil {
		_ = d.f.Close()
		return err
	}
	return d.f.Close()
}
