package capture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/avtools/playout/pkg/media"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// withLabel returns a copy of the frame with the label burned in at the
// top left corner. The original frame is shared with the render path
// and stays untouched. Undersized or malformed frames pass through.
func withLabel(frame media.Video, label string) media.Video {
	if label == "" || frame.W <= 0 || frame.H <= 0 || len(frame.Frame) < frame.Stride*frame.H {
		return frame
	}
	pix := make([]byte, len(frame.Frame))
	copy(pix, frame.Frame)
	img := &image.RGBA{Pix: pix, Stride: frame.Stride, Rect: image.Rect(0, 0, frame.W, frame.H)}
	addLabel(img, 8, 8, label)
	out := frame
	out.Frame = pix
	return out
}

func addLabel(img *image.RGBA, x, y int, label string) {
	draw.Draw(img, image.Rect(x, y, x+len(label)*7+3, y+12), &image.Uniform{C: color.RGBA{}}, image.Point{}, draw.Src)
	(&font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.Int26_6((x + 2) * 64), Y: fixed.Int26_6((y + 10) * 64)},
	}).DrawString(label)
}

func timeFormat(d time.Duration) string {
	mms := int(d.Milliseconds())
	ms := mms % 1000
	s := (mms / 1000) % 60
	m := (mms / (1000 * 60)) % 60
	h := (mms / (1000 * 60 * 60)) % 24
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
