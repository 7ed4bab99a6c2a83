package recorder

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/media"
)

func TestRecording(t *testing.T) {
	dir, err := os.MkdirTemp("", "rec_test_")
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Fatal(err)
		}
	}()

	recorder := NewRecording(
		Meta{UserName: "test"},
		logger.Default(),
		Options{
			Dir:       dir,
			Fps:       60,
			Frequency: 10,
			Name:      "test",
			Session:   fmt.Sprintf("test_session_%v", rand.Int()),
			Vsync:     true,
			Zip:       false,
		})
	recorder.Set(true, "test_user")

	iterations := 222

	var imgWg, audioWg sync.WaitGroup
	imgWg.Add(iterations)
	audioWg.Add(iterations)
	frame := genFrame(100, 100)
	frame.Duration = 16 * time.Millisecond

	for i := 0; i < iterations; i++ {
		go func() {
			recorder.WriteVideo(frame)
			imgWg.Done()
		}()
		go func() {
			recorder.WriteAudio(media.Audio{Data: []int16{0, 0, 0, 0, 0, 1, 11, 11, 11, 1}, Duration: time.Millisecond})
			audioWg.Done()
		}()
	}

	imgWg.Wait()
	audioWg.Wait()
	if err := recorder.Stop(); err != nil {
		t.Fatal(err)
	}

	checkOutput(t, dir, iterations)
}

// checkOutput validates the on-disk layout of a finished recording.
func checkOutput(t *testing.T, dir string, frames int) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Fatalf("expected a single save dir in %v, got %v", dir, entries)
	}
	save := filepath.Join(dir, entries[0].Name())

	wav, err := os.Stat(filepath.Join(save, audioFile))
	if err != nil {
		t.Fatal(err)
	}
	if wav.Size() <= audioFileRIFFSize {
		t.Errorf("audio file has no samples, size: %v", wav.Size())
	}

	files, err := os.ReadDir(save)
	if err != nil {
		t.Fatal(err)
	}
	raw := 0
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".raw") {
			raw++
		}
	}
	if raw != frames {
		t.Errorf("expected %v frame files, got %v", frames, raw)
	}

	mux, err := os.ReadFile(filepath.Join(save, demuxFile))
	if err != nil {
		t.Fatal(err)
	}
	manifest := string(mux)
	if !strings.HasPrefix(manifest, "ffconcat version 1.0") {
		t.Errorf("manifest has no ffconcat header")
	}
	if !strings.Contains(manifest, "stream_meta session") {
		t.Errorf("manifest has no session meta")
	}
	if n := strings.Count(manifest, "duration 0.016000"); n != frames {
		t.Errorf("expected %v vsync durations, got %v", frames, n)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		session string
		user    string
		match   string
	}{
		{name: "%date:20060102%_%session%_%rand:5%", session: "zelda", user: "u", match: `^\d{8}_zelda_[a-zA-Z]{5}$`},
		{name: "%user%@%session%", session: "x", user: "admin", match: `^admin@x$`},
		{name: "plain", session: "s", user: "u", match: `^plain$`},
		{name: "", session: "s", user: "u", match: `^$`},
	}
	for _, test := range tests {
		out := parseName(test.name, test.session, test.user)
		if ok, _ := regexp.MatchString(test.match, out); !ok {
			t.Errorf("%v -> %v doesn't match %v", test.name, out, test.match)
		}
	}
}

func TestExtractFileInfo(t *testing.T) {
	name := fmt.Sprintf(videoFile, 1, 100, 120, 400)
	w, h, st := ExtractFileInfo(name)
	if w != "100" || h != "120" || st != "400" {
		t.Errorf("wrong file info: %v %v %v from %v", w, h, st, name)
	}
}

func BenchmarkNewRecording100x100(b *testing.B) {
	benchmarkRecorder(100, 100, b)
}

func BenchmarkNewRecording320x240(b *testing.B) {
	benchmarkRecorder(320, 240, b)
}

func benchmarkRecorder(w, h int, b *testing.B) {
	b.StopTimer()

	dir, err := os.MkdirTemp("", "rec_bench_")
	if err != nil {
		b.Fatal(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			b.Fatal(err)
		}
	}()

	frame1 := genFrame(w, h)
	frame2 := genFrame(w, h)

	var bytes int64 = 0

	var ticks sync.WaitGroup
	ticks.Add(b.N * 2)

	b.StartTimer()

	recorder := NewRecording(
		Meta{UserName: "test"},
		logger.Default(),
		Options{
			Dir:       dir,
			Fps:       60,
			Frequency: 10,
			Name:      "",
			Session:   fmt.Sprintf("test_session_%v", rand.Int()),
			Zip:       false,
		})
	recorder.Set(true, "test_user")
	samples := []int16{0, 0, 0, 0, 0, 1, 11, 11, 11, 1}

	for i := 0; i < b.N; i++ {
		f := frame1
		if i%2 == 0 {
			f = frame2
		}
		go func() {
			recorder.WriteVideo(f)
			atomic.AddInt64(&bytes, int64(len(f.Frame)))
			ticks.Done()
		}()
		go func() {
			recorder.WriteAudio(media.Audio{Data: samples, Duration: time.Millisecond})
			atomic.AddInt64(&bytes, int64(len(samples)*2))
			ticks.Done()
		}()
	}
	ticks.Wait()
	b.SetBytes(bytes / int64(b.N))
	if err := recorder.Stop(); err != nil {
		b.Fatal(err)
	}
}

func genFrame(w, h int) media.Video {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, randomColor())
		}
	}
	return media.Video{
		Frame:  img.Pix,
		Stride: img.Stride,
		W:      img.Bounds().Dx(),
		H:      img.Bounds().Dy(),
	}
}

func randomColor() color.RGBA {
	return color.RGBA{
		R: uint8(rand.Intn(256)),
		G: uint8(rand.Intn(256)),
		B: uint8(rand.Intn(256)),
		A: 255,
	}
}
