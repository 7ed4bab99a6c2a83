package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/avtools/playout/pkg/logger"
	"github.com/cavaliergopher/grab/v3"
)

type grabFetcher struct {
	client *grab.Client
	// the number of parallel downloads
	concurrency int
	log         *logger.Logger
}

const defaultConcurrency = 5

func newGrabFetcher(concurrency int, log *logger.Logger) grabFetcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return grabFetcher{
		client:      grab.NewClient(),
		concurrency: concurrency,
		log:         log,
	}
}

func (d grabFetcher) Request(dest string, urls ...string) (files []string, fails []string) {
	reqs := make([]*grab.Request, 0)
	for _, url := range urls {
		req, err := request(dest, url)
		if err != nil {
			d.log.Error().Err(err).Msgf("couldn't make request URL: %v", url)
			fails = append(fails, url)
		} else {
			reqs = append(reqs, req)
		}
	}

	// check each response
	for resp := range d.client.DoBatch(d.concurrency, reqs...) {
		t := time.NewTicker(500 * time.Millisecond)
	progress:
		for {
			select {
			case <-t.C:
				d.log.Debug().Msgf("transferred %v / %v bytes (%.2f%%)",
					resp.BytesComplete(), resp.Size(), 100*resp.Progress())
			case <-resp.Done:
				break progress
			}
		}
		t.Stop()

		if err := resp.Err(); err != nil {
			d.log.Error().Err(err).Msgf("download failed for %v", resp.Request.URL())
			fails = append(fails, resp.Request.URL().String())
		} else {
			d.log.Info().Msgf("downloaded [%v] %v", resp.HTTPResponse.Status, resp.Filename)
			files = append(files, resp.Filename)
		}
	}
	return
}

// request makes a download request from a URL with an optional
// trailing #sha256=hex checksum part, i.e.:
//
//	https://x.org/session.zip#sha256=5891b5b522d5df086d0ff0b110fbd9d2...
//
// Mismatched files will be deleted.
func request(dest string, url string) (*grab.Request, error) {
	address, frag, _ := strings.Cut(url, "#")
	req, err := grab.NewRequest(dest, address)
	if err != nil {
		return nil, err
	}
	if scheme, hexSum, ok := strings.Cut(frag, "="); ok && scheme == "sha256" {
		sum, err := hex.DecodeString(hexSum)
		if err != nil {
			return nil, err
		}
		req.SetChecksum(sha256.New(), sum, true)
	}
	return req, nil
}
