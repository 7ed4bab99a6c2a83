// Package opus wraps an Opus encoder for the viewer audio tracks.
package opus

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

type Encoder struct {
	*opus.Encoder
	out []byte
}

// NewEncoder creates an Opus encoder for interleaved 16bit PCM.
// Opus takes only 8/12/16/24/48 kHz input, so session audio has to be
// resampled to outFq before encoding.
func NewEncoder(outFq int, channels int) (*Encoder, error) {
	encoder, err := opus.NewEncoder(outFq, channels,
		// be aware that low delay option is not optimized for voice
		opus.AppRestrictedLowdelay)
	if err != nil {
		return nil, fmt.Errorf("opus: initialization error (%w)", err)
	}
	enc := &Encoder{Encoder: encoder, out: make([]byte, 1024)}
	_ = enc.SetMaxBandwidth(opus.Fullband)
	_ = enc.SetBitrateToAuto()
	_ = enc.SetComplexity(10)
	return enc, nil
}

// Encode compresses one PCM frame of 2.5, 5, 10, 20, 40, or 60 ms.
// The result is valid until the next call.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, nil
	}
	n, err := e.Encoder.Encode(pcm, e.out)
	if err != nil {
		return nil, err
	}
	return e.out[:n], nil
}
