package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

const (
	audioFile  = "audio.wav"
	framesFile = "frames.txt"
	frameExt   = ".raw"

	// the size of an empty RIFF (WAV) header
	audioHeader = 44
)

// libConf is an optimized internal library configuration
type libConf struct {
	path      string
	supported map[string]struct{}
	ignored   []string
	verbose   bool
	watchMode bool
}

type library struct {
	config libConf
	// indicates library root existence
	hasSource bool
	// scan time
	lastScanDuration time.Duration
	// library entries
	// session name -> session meta
	// sessions with duplicate names are merged
	sessions map[string]SessionMetadata
	log      *logger.Logger

	// terminates the watcher
	done chan struct{}
	stop sync.Once

	// to restrict parallel execution or throttling
	// for file watch mode
	mu                sync.Mutex
	isScanning        bool
	isScanningDelayed bool
}

type SessionLibrary interface {
	GetAll() []SessionMetadata
	Find(name string) SessionMetadata
	Scan()
	Close()
}

type SessionMetadata struct {
	Base string
	Name string // the display name of the session
	Path string // the session path relative to the library base path
	Size int64  // the on-disk size of the session media files

	HasAudio bool
	HasVideo bool
	// packed sessions need extraction before playback
	Archive bool
}

func (s SessionMetadata) FullPath(base string) string {
	if base == "" {
		return filepath.Join(s.Base, s.Path)
	}
	return filepath.Join(base, s.Path)
}

func (s SessionMetadata) Found() bool { return s.Name != "" }

func NewLib(conf config.Library, log *logger.Logger) SessionLibrary {
	hasSource := true
	dir, err := filepath.Abs(conf.BasePath)
	if err != nil {
		hasSource = false
		log.Error().Err(err).Str("dir", conf.BasePath).Msg("Lib has invalid source")
	}

	if len(conf.Supported) == 0 {
		conf.Supported = []string{"zip"}
	}

	library := &library{
		config: libConf{
			path:      dir,
			supported: toMap(conf.Supported),
			ignored:   conf.Ignored,
			verbose:   conf.Verbose,
			watchMode: conf.WatchMode,
		},
		mu:        sync.Mutex{},
		sessions:  map[string]SessionMetadata{},
		hasSource: hasSource,
		done:      make(chan struct{}),
		log:       log.Mod("lib"),
	}

	if conf.WatchMode && hasSource {
		go library.watch()
	}

	return library
}

func (lib *library) GetAll() []SessionMetadata {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	var res []SessionMetadata
	for _, value := range lib.sessions {
		res = append(res, value)
	}
	return res
}

// Find returns some session info with its full filepath
func (lib *library) Find(name string) SessionMetadata {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	var session SessionMetadata
	if val, ok := lib.sessions[name]; ok {
		val.Base = lib.config.path
		return val
	}
	return session
}

func (lib *library) Close() { lib.stop.Do(func() { close(lib.done) }) }

func (lib *library) Scan() {
	if !lib.hasSource {
		lib.log.Info().Msg("Lib scan... skipped (no source)")
		return
	}

	// scan throttling
	lib.mu.Lock()
	if lib.isScanning {
		defer lib.mu.Unlock()
		lib.isScanningDelayed = true
		lib.log.Debug().Msg("Lib scan... delayed")
		return
	}
	lib.isScanning = true
	lib.mu.Unlock()

	lib.log.Debug().Msg("Lib scan... started")

	start := time.Now()
	var found []SessionMetadata
	dir := lib.config.path
	err := filepath.WalkDir(dir, func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if info == nil {
			return nil
		}

		if info.IsDir() {
			meta, ok := lib.sessionDir(path)
			if !ok {
				return nil
			}
			if !lib.isIgnored(meta.Name) {
				found = append(found, meta)
			}
			// media files of a session are not entries themselves
			return filepath.SkipDir
		}

		if !lib.isExtAllowed(path) {
			return nil
		}

		meta := lib.packed(path, info)
		if !lib.isIgnored(meta.Name) {
			found = append(found, meta)
		}
		return nil
	})

	if err != nil {
		lib.log.Error().Err(err).Str("dir", dir).Msgf("Lib scan... failed")
	} else {
		lib.set(found)
	}

	lib.lastScanDuration = time.Since(start)
	if lib.config.verbose {
		lib.dumpLibrary()
	}

	// run scan again if delayed
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.isScanning = false
	if lib.isScanningDelayed {
		lib.isScanningDelayed = false
		go lib.Scan()
	}

	lib.log.Info().Msg("Lib scan... completed")
}

// watch adds the ability to rescan the entire library
// during filesystem changes in a watched directory.
// !to add incremental library change
func (lib *library) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		lib.log.Error().Err(err).Msg("Lib watcher has failed")
		return
	}

	go func(repo *library) {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Create || event.Op == fsnotify.Remove {
					// !to try to add the proper file/dir add/remove scan logic
					// which is tricky
					repo.Scan()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}(lib)

	if err = watcher.Add(lib.config.path); err != nil {
		lib.log.Error().Err(err).Msg("Lib watch error")
	}
	<-lib.done
	_ = watcher.Close()
	lib.log.Info().Msg("Lib watch has ended")
}

// sessionDir gathers session info from a directory with media files.
// A directory is a session when it contains either an audio or
// a frame manifest file.
func (lib *library) sessionDir(path string) (meta SessionMetadata, ok bool) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return meta, false
	}

	relPath, _ := filepath.Rel(lib.config.path, path)
	meta = SessionMetadata{Name: filepath.Base(path), Path: relPath}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		inf, err := e.Info()
		if err != nil {
			continue
		}
		switch {
		case e.Name() == audioFile:
			ok = true
			meta.Size += inf.Size()
			// header-only files have no samples
			meta.HasAudio = inf.Size() > audioHeader
		case e.Name() == framesFile:
			ok = true
			meta.Size += inf.Size()
		case strings.ToLower(filepath.Ext(e.Name())) == frameExt:
			meta.HasVideo = true
			meta.Size += inf.Size()
		}
	}
	return meta, ok
}

// packed returns session info for a not yet extracted session archive
func (lib *library) packed(path string, info fs.DirEntry) SessionMetadata {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	relPath, _ := filepath.Rel(lib.config.path, path)

	meta := SessionMetadata{
		Archive: true,
		Name:    strings.TrimSuffix(name, ext),
		Path:    relPath,
	}
	if inf, err := info.Info(); err == nil {
		meta.Size = inf.Size()
	}
	return meta
}

func (lib *library) set(sessions []SessionMetadata) {
	res := make(map[string]SessionMetadata)
	for _, value := range sessions {
		res[value.Name] = value
	}
	lib.mu.Lock()
	lib.sessions = res
	lib.mu.Unlock()
}

func (lib *library) isExtAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := lib.config.supported[ext[1:]]
	return ok
}

func (lib *library) isIgnored(name string) bool {
	for _, k := range lib.config.ignored {
		if name == k {
			return true
		}
		if len(k) > 0 && k[0] == '.' && strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// dumpLibrary printouts the current library snapshot of sessions
func (lib *library) dumpLibrary() {
	var list strings.Builder

	// oof
	keys := make([]string, 0, len(lib.sessions))
	for k := range lib.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := lib.sessions[k]
		tracks := ""
		if s.HasAudio {
			tracks += "a"
		}
		if s.HasVideo {
			tracks += "v"
		}
		if s.Archive {
			tracks = "zip"
		}
		list.WriteString(fmt.Sprintf("    %3s %10d   %s (%s)\n", tracks, s.Size, s.Name, s.Path))
	}

	lib.log.Debug().Msgf("Lib dump\n"+
		"--------------------------------------------\n"+
		"--- The Library of Sessions              ---\n"+
		"--------------------------------------------\n"+
		"%v"+
		"--------------------------------------------\n"+
		"--- Sessions: %03d %20s ---\n"+
		"--------------------------------------------",
		list.String(), len(lib.sessions), lib.lastScanDuration)
}

func toMap(list []string) map[string]struct{} {
	res := make(map[string]struct{}, len(list))
	for _, s := range list {
		res[s] = struct{}{}
	}
	return res
}
