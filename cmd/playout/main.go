package main

import (
	"context"
	"time"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/fetch"
	"github.com/avtools/playout/pkg/library"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/monitoring"
	"github.com/avtools/playout/pkg/os"
	"github.com/avtools/playout/pkg/service"
	"github.com/avtools/playout/pkg/session"
)

var Version = "?"

func main() {
	conf := config.NewPlayoutConfig()
	conf.ParseFlags()

	tag := conf.Playout.Tag
	if tag == "" {
		tag = "p"
	}
	log := logger.NewConsole(conf.Playout.Debug, tag, false)
	log.Info().Msgf("version %v", Version)
	log.Debug().Msgf("config: %+v", conf)

	lock, err := os.NewFileLock("")
	if err == nil {
		err = lock.TryLock()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("one running instance is allowed")
	}
	defer func() { _ = lock.Unlock() }()

	if len(conf.Fetch.Urls) > 0 {
		fetcher := fetch.NewFetcher(conf.Fetch, log)
		if _, fails := fetcher.Fetch(conf.Fetch.Dir, conf.Fetch.Urls...); len(fails) > 0 {
			log.Warn().Msgf("couldn't fetch: %v", fails)
		}
	}

	lib := library.NewLib(conf.Library, log)
	lib.Scan()
	defer lib.Close()

	sess := session.New(conf, log)
	hub, err := session.NewHub(conf, sess, lib, log)
	if err != nil {
		log.Fatal().Err(err).Msg("hub init fail")
	}

	var services service.Group
	services.Add(hub)
	if conf.Playout.Monitoring.IsEnabled() {
		m, err := monitoring.New(conf.Playout.Monitoring, log)
		if err != nil {
			log.Error().Err(err).Msg("monitoring init fail")
		} else {
			services.Add(m)
		}
	}
	services.Start()

	if name := conf.Playout.AutoPlay; name != "" {
		err := hub.Open(name)
		if err == nil {
			err = sess.Play()
		}
		if err != nil {
			log.Error().Err(err).Msgf("can't autoplay [%v]", name)
		}
	}

	<-os.ExpectTermination()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := services.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
