package media

import (
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// RGBA wraps the frame bytes into an image without copying,
// so the result shares memory with the frame.
func (v *Video) RGBA() *image.RGBA {
	return &image.RGBA{Pix: v.Frame, Stride: v.Stride, Rect: image.Rect(0, 0, v.W, v.H)}
}

// Thumbnailer squeezes raw RGBA frames into JPEGs, downscaled to some
// max width when needed. It reuses its staging buffers between calls,
// one instance per consumer.
type Thumbnailer struct {
	maxW int
	opts jpeg.Options
	dst  *image.RGBA
	out  writeBuffer
}

type writeBuffer struct{ b []byte }

func (w *writeBuffer) Write(p []byte) (int, error) { w.b = append(w.b, p...); return len(p), nil }

func NewThumbnailer(maxW int, quality int) *Thumbnailer {
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	return &Thumbnailer{maxW: maxW, opts: jpeg.Options{Quality: quality}}
}

// Encode returns the JPEG bytes of the frame.
// The result is valid until the next call.
func (t *Thumbnailer) Encode(v *Video) ([]byte, error) {
	if v == nil || v.W <= 0 || v.H <= 0 || len(v.Frame) < v.Stride*v.H {
		return nil, fmt.Errorf("malformed frame")
	}
	img := v.RGBA()
	if t.maxW > 0 && v.W > t.maxW {
		h := v.H * t.maxW / v.W
		if h < 1 {
			h = 1
		}
		if t.dst == nil || t.dst.Rect.Dx() != t.maxW || t.dst.Rect.Dy() != h {
			t.dst = image.NewRGBA(image.Rect(0, 0, t.maxW, h))
		}
		draw.ApproxBiLinear.Scale(t.dst, t.dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = t.dst
	}
	t.out.b = t.out.b[:0]
	if err := jpeg.Encode(&t.out, img, &t.opts); err != nil {
		return nil, err
	}
	return t.out.b, nil
}
