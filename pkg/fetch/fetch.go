package fetch

import (
	"os"

	"github.com/avtools/playout/pkg/compression"
	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
)

type Fetcher struct {
	backend client
	// pipe contains a sequential list of
	// operations applied to some files and
	// each operation will return a list of
	// successfully processed files
	pipe []Process
	log  *logger.Logger
}

type client interface {
	Request(dest string, urls ...string) (files []string, fails []string)
}

type Process func(string, []string, *logger.Logger) []string

func NewDefaultFetcher(log *logger.Logger) Fetcher {
	return Fetcher{
		backend: newGrabFetcher(defaultConcurrency, log),
		pipe:    []Process{unpackDelete},
		log:     log,
	}
}

// NewFetcher is a fetcher with the worker count from the config.
func NewFetcher(conf config.Fetch, log *logger.Logger) Fetcher {
	return Fetcher{
		backend: newGrabFetcher(conf.Workers, log),
		pipe:    []Process{unpackDelete},
		log:     log,
	}
}

// Fetch tries to download specified with URLs list of files and
// put them into the destination folder.
// It will return a partial or full list of downloaded files,
// a list of processed files if some pipe processing functions are set.
func (f *Fetcher) Fetch(dest string, urls ...string) ([]string, []string) {
	files, fails := f.backend.Request(dest, urls...)
	for _, op := range f.pipe {
		files = op(dest, files, f.log)
	}
	return files, fails
}

func unpackDelete(dest string, files []string, log *logger.Logger) []string {
	var res []string
	for _, file := range files {
		if unpack := compression.NewFromExt(file, log); unpack != nil {
			if _, err := unpack.Extract(file, dest); err == nil {
				if e := os.Remove(file); e == nil {
					res = append(res, file)
				}
			}
		}
	}
	return res
}
