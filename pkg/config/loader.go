package config

import (
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
)

// EnvPrefix scopes the config env variables, e.g. PLAYOUT_SERVER_ADDRESS.
const EnvPrefix = "PLAYOUT"

// searchDirs is the config.yaml lookup order when no explicit path is given.
func searchDirs() []string {
	dirs := []string{".", "configs", "../../../configs"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".playout"))
	}
	return dirs
}

// LoadConfig fills the struct from a config.yaml in the given directory,
// or in one of the default search paths when the directory is empty, and
// then from the environment on top. Nested params are joined with _, so
// render.audio.device becomes PLAYOUT_RENDER_AUDIO_DEVICE.
func LoadConfig(config any, dir string) error {
	dirs := searchDirs()
	if dir != "" {
		dirs = []string{dir}
	}
	return fig.Load(config, fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
}

// LoadConfigEnv fills the struct from the environment only.
func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}
