package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
)

func TestLibraryScan(t *testing.T) {
	root := t.TempDir()

	write(t, filepath.Join(root, "20220101_zelda_aaaaa", "audio.wav"), 1044)
	write(t, filepath.Join(root, "20220101_zelda_aaaaa", "frames.txt"), 120)
	write(t, filepath.Join(root, "20220101_zelda_aaaaa", "f0000000__16x16__64.raw"), 1024)
	write(t, filepath.Join(root, "20220101_zelda_aaaaa", "f0000001__16x16__64.raw"), 1024)
	write(t, filepath.Join(root, "audio_only", "audio.wav"), 444)
	write(t, filepath.Join(root, "video_only", "frames.txt"), 80)
	write(t, filepath.Join(root, "video_only", "f0000000__16x16__64.raw"), 1024)
	write(t, filepath.Join(root, "blank", "audio.wav"), 44)
	write(t, filepath.Join(root, "nested", "old_session", "audio.wav"), 144)
	write(t, filepath.Join(root, "skipme", "audio.wav"), 144)
	write(t, filepath.Join(root, "packed.zip"), 512)
	write(t, filepath.Join(root, "notes.txt"), 10)

	lib := NewLib(config.Library{
		BasePath: root,
		Ignored:  []string{"skipme"},
	}, logger.NewConsole(false, "t", false))
	defer lib.Close()
	lib.Scan()

	all := lib.GetAll()
	if len(all) != 6 {
		t.Errorf("expected 6 sessions, got %v", names(all))
	}
	for _, name := range []string{
		"20220101_zelda_aaaaa", "audio_only", "video_only", "blank", "old_session", "packed",
	} {
		if !lib.Find(name).Found() {
			t.Errorf("%v not found in %v", name, names(all))
		}
	}

	full := lib.Find("20220101_zelda_aaaaa")
	if !full.HasAudio || !full.HasVideo || full.Archive {
		t.Errorf("unexpected meta: %+v", full)
	}
	if full.Size != 1044+120+2*1024 {
		t.Errorf("wrong size: %v", full.Size)
	}
	if p := full.FullPath(""); p != filepath.Join(root, "20220101_zelda_aaaaa") {
		t.Errorf("wrong full path: %v", p)
	}

	if m := lib.Find("audio_only"); !m.HasAudio || m.HasVideo {
		t.Errorf("unexpected meta: %+v", m)
	}
	if m := lib.Find("video_only"); m.HasAudio || !m.HasVideo {
		t.Errorf("unexpected meta: %+v", m)
	}
	// a header-only audio file counts as a session with no tracks
	if m := lib.Find("blank"); m.HasAudio || m.HasVideo {
		t.Errorf("unexpected meta: %+v", m)
	}
	if m := lib.Find("old_session"); m.Path != filepath.Join("nested", "old_session") {
		t.Errorf("wrong path: %v", m.Path)
	}
	if m := lib.Find("packed"); !m.Archive || m.Size != 512 {
		t.Errorf("unexpected meta: %+v", m)
	}
	if lib.Find("skipme").Found() {
		t.Errorf("ignored session was found")
	}
	if lib.Find("nope").Found() {
		t.Errorf("missing session was found")
	}
}

func TestLibraryRescan(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "one", "audio.wav"), 100)

	lib := NewLib(config.Library{BasePath: root}, logger.NewConsole(false, "t", false))
	defer lib.Close()
	lib.Scan()
	if len(lib.GetAll()) != 1 {
		t.Errorf("expected 1 session, got %v", names(lib.GetAll()))
	}

	if err := os.RemoveAll(filepath.Join(root, "one")); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(root, "two", "frames.txt"), 100)
	lib.Scan()

	if all := lib.GetAll(); len(all) != 1 || all[0].Name != "two" {
		t.Errorf("expected only the new session, got %v", names(all))
	}
}

func Benchmark(b *testing.B) {
	log := logger.Default()
	logger.SetGlobalLevel(logger.Disabled)

	root := b.TempDir()
	for _, d := range []string{"a", "b", "c"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o777); err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, d, "audio.wav"), make([]byte, 100), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	lib := NewLib(config.Library{BasePath: root}, log)
	defer lib.Close()

	for i := 0; i < b.N; i++ {
		lib.Scan()
		_ = lib.GetAll()
	}
}

func write(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func names(list []SessionMetadata) (res []string) {
	for _, s := range list {
		res = append(res, s.Name)
	}
	return
}
