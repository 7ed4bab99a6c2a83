package media

// Samples is interleaved 16bit LE PCM data.
type Samples []int16

// Buffer accumulates PCM samples into frames of a fixed size.
// Not thread safe.
type Buffer struct {
	frame Samples
	n     int
}

// NewBuffer allocates a buffer emitting frames of the given sample count.
func NewBuffer(frameLen int) Buffer { return Buffer{frame: make(Samples, frameLen)} }

// FrameSamples calculates the interleaved sample count of one audio frame
// of the given length, i.e. 48k*frame/1000*2 for stereo.
func FrameSamples(hz int, channels int, frame int) int { return hz * frame / 1000 * channels }

// Write copies samples into the buffer handing every completed frame to
// the emit callback. Short writes just accumulate, one long write may
// flush several frames in a row. The callback borrows the internal
// slice and has to copy the data if it keeps it around.
func (b *Buffer) Write(s Samples, emit func(frame Samples)) int {
	written := 0
	for written < len(s) {
		n := copy(b.frame[b.n:], s[written:])
		written += n
		if b.n += n; b.n < len(b.frame) {
			continue
		}
		b.n = 0
		if emit != nil {
			emit(b.frame)
		}
	}
	return written
}
