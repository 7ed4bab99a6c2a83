package config

import (
	"os"
	"strings"
	"testing"
)

func TestConfigFile(t *testing.T) {
	var out PlayoutConfig
	if err := LoadConfig(&out, "testdata"); err != nil {
		t.Fatal(err)
	}

	if out.Library.BasePath != "./sessions" {
		t.Errorf("wrong library path: %v", out.Library.BasePath)
	}
	if !out.Library.WatchMode {
		t.Errorf("watch mode is off")
	}
	if out.Playout.Rate != 1.5 {
		t.Errorf("wrong rate: %v", out.Playout.Rate)
	}
	if out.Render.Audio.Device != "file" || out.Render.Audio.BufferMs != 50 {
		t.Errorf("wrong audio device conf: %+v", out.Render.Audio)
	}
	if len(out.Library.Supported) != 1 || out.Library.Supported[0] != "zip" {
		t.Errorf("%v is not [zip]", out.Library.Supported)
	}
}

func TestConfigEnv(t *testing.T) {
	var out PlayoutConfig

	_ = os.Setenv("PLAYOUT_RENDER_AUDIO_DEVICE", "file")
	_ = os.Setenv("PLAYOUT_PLAYOUT_MONITORING_PORT", "9999")
	defer func() { _ = os.Unsetenv("PLAYOUT_RENDER_AUDIO_DEVICE") }()
	defer func() { _ = os.Unsetenv("PLAYOUT_PLAYOUT_MONITORING_PORT") }()

	if err := LoadConfigEnv(&out); err != nil {
		t.Fatal(err)
	}

	if out.Render.Audio.Device != "file" {
		t.Errorf("%v is not file", out.Render.Audio.Device)
	}
	if out.Playout.Monitoring.Port != 9999 {
		t.Errorf("%v is not 9999", out.Playout.Monitoring.Port)
	}
}

func TestSpecialTags(t *testing.T) {
	var conf PlayoutConfig
	if err := LoadConfig(&conf, "testdata"); err != nil {
		t.Fatal(err)
	}
	conf.expandSpecialTags()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no user home")
	}
	if !strings.HasPrefix(conf.Recording.Folder, home) {
		t.Errorf("{user} tag was not expanded: %v", conf.Recording.Folder)
	}
}

func TestFixValues(t *testing.T) {
	var conf PlayoutConfig
	if err := LoadConfig(&conf, "testdata"); err != nil {
		t.Fatal(err)
	}
	conf.fixValues()

	if len(conf.Webrtc.IceServers) != 0 {
		t.Errorf("ICE lite didn't clear servers: %v", conf.Webrtc.IceServers)
	}
	conf.Playout.Rate = 0
	conf.fixValues()
	if conf.Playout.Rate != 1 {
		t.Errorf("zero rate was not fixed: %v", conf.Playout.Rate)
	}
}
