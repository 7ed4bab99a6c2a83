package media

import (
	"bytes"
	"encoding/binary"

	"github.com/zaf/resample"
)

// Resampler converts PCM between sample rates. Implementations keep
// internal state, so one instance shouldn't be shared between tracks.
type Resampler interface {
	Init(in, out, channels int) error
	Resample(pcm []int16, size int) []int16
	Close() error
}

type (
	// LinearResampler interpolates samples in fixed-point math, no deps.
	LinearResampler struct{}
	// SoxResampler wraps the SoX resampling library (libsoxr).
	SoxResampler struct {
		backend *resample.Resampler
		buffer  *bytes.Buffer
	}
)

func NewResampler(kind string) Resampler {
	if kind == "sox" {
		return &SoxResampler{}
	}
	return LinearResampler{}
}

func (LinearResampler) Init(_, _, _ int) error { return nil }
func (LinearResampler) Close() error           { return nil }

func (LinearResampler) Resample(pcm []int16, size int) []int16 {
	dst := make([]int16, size)
	ResampleLinear(dst, pcm)
	return dst
}

func (r *SoxResampler) Init(in, out, channels int) error {
	r.buffer = bytes.NewBuffer([]byte{})
	res, err := resample.New(r.buffer, float64(in), float64(out), channels, resample.I16, resample.VeryHighQ)
	if err != nil {
		return err
	}
	r.backend = res
	return nil
}

func (r *SoxResampler) Resample(pcm []int16, _ int) []int16 {
	defer r.buffer.Reset()
	if _, err := r.backend.Write(toBytes(pcm)); err != nil {
		return nil
	}
	return toInt16(r.buffer.Bytes())
}

func (r *SoxResampler) Close() error { return r.backend.Close() }

func toBytes(pcm []int16) []byte {
	bs := make([]uint8, len(pcm)*2)
	for i, k := 0, 0; i < len(pcm); i++ {
		binary.LittleEndian.PutUint16(bs[k:k+2], uint16(pcm[i]))
		k += 2
	}
	return bs
}

func toInt16(bs []byte) []int16 {
	pcm := make([]int16, len(bs)/2)
	for i, k := 0, 0; i < len(pcm); i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(bs[k : k+2]))
		k += 2
	}
	return pcm
}

// ResampleStretch does a simple stretching of audio samples.
func ResampleStretch(pcm []int16, size int) []int16 {
	r, l, audio := make([]int16, size/2), make([]int16, size/2), make([]int16, size)
	// ratio is basically the destination sample rate
	// divided by the origin sample rate (i.e. 48000/44100)
	ratio := float32(size) / float32(len(pcm))
	for i, n := 0, len(pcm)-1; i < n; i += 2 {
		idx := int(float32(i/2) * ratio)
		r[idx], l[idx] = pcm[i], pcm[i+1]
	}
	for i, n := 1, len(r); i < n; i++ {
		if r[i] == 0 {
			r[i] = r[i-1]
		}
		if l[i] == 0 {
			l[i] = l[i-1]
		}
	}
	for i := 0; i < size-1; i += 2 {
		audio[i], audio[i+1] = r[i/2], l[i/2]
	}
	return audio
}

// ResampleLinear interpolates stereo pairs of src into dst in 16.16
// fixed-point steps. Lengths must be even.
func ResampleLinear(dst, src []int16) {
	nSrc, nDst := len(src), len(dst)
	if nSrc < 2 || nDst < 2 {
		return
	}

	srcPairs, dstPairs := nSrc>>1, nDst>>1

	// replicate single pair input or output
	if srcPairs == 1 || dstPairs == 1 {
		for i := 0; i < dstPairs; i++ {
			dst[i*2], dst[i*2+1] = src[0], src[1]
		}
		return
	}

	ratio := ((srcPairs - 1) << 16) / (dstPairs - 1)
	lastSrc := nSrc - 2

	// interpolate all pairs except the last
	for i, pos := 0, 0; i < dstPairs-1; i, pos = i+1, pos+ratio {
		idx := (pos >> 16) << 1
		di := i << 1
		frac := int32(pos & 0xFFFF)
		l0, r0 := int32(src[idx]), int32(src[idx+1])

		// L = L0 + (L1-L0)*frac
		dst[di] = int16(l0 + ((int32(src[idx+2])-l0)*frac)>>16)
		// R = R0 + (R1-R0)*frac
		dst[di+1] = int16(r0 + ((int32(src[idx+3])-r0)*frac)>>16)
	}

	// last output pair = last input pair (avoids precision loss at the edge)
	lastDst := (dstPairs - 1) << 1
	dst[lastDst], dst[lastDst+1] = src[lastSrc], src[lastSrc+1]
}
