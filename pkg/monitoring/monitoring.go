// Package monitoring hosts the optional pprof and Prometheus endpoints.
package monitoring

import (
	"context"
	"fmt"
	"net/http/pprof"

	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/network/httpx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Monitoring struct {
	conf   config.Monitoring
	log    *logger.Logger
	server *httpx.Server
}

// New creates a new monitoring service.
// Profiling and metric handlers are mounted under conf.URLPrefix.
func New(conf config.Monitoring, log *logger.Logger) (*Monitoring, error) {
	lg := log.Mod("monitor")
	server, err := httpx.NewServer(
		fmt.Sprintf(":%d", conf.Port),
		func(serv *httpx.Server) httpx.Handler {
			h := httpx.NewServeMux(conf.URLPrefix)

			if conf.ProfilingEnabled {
				lg.Info().Msgf("Profiling is enabled at %v", serv.Addr+conf.URLPrefix+"/debug/pprof")
				h.HandleFunc("/debug/pprof/", pprof.Index)
				h.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
				h.HandleFunc("/debug/pprof/profile", pprof.Profile)
				h.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
				h.HandleFunc("/debug/pprof/trace", pprof.Trace)
				// pprof handlers for custom pprof paths need to be
				// registered explicitly, according to:
				// https://github.com/gin-contrib/pprof/issues/8
				h.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
				h.Handle("/debug/pprof/block", pprof.Handler("block"))
				h.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
				h.Handle("/debug/pprof/heap", pprof.Handler("heap"))
				h.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))
				h.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
			}

			if conf.MetricEnabled {
				lg.Info().Msgf("Prometheus metrics are enabled at %v", serv.Addr+conf.URLPrefix+"/metrics")
				h.Handle("/metrics", promhttp.Handler())
			}

			return h
		},
		httpx.WithLogger(lg),
	)
	if err != nil {
		return nil, err
	}
	return &Monitoring{conf: conf, log: lg, server: server}, nil
}

func (m *Monitoring) Run() {
	m.log.Info().Msgf("Start monitoring server at %v", m.server.Addr)
	m.server.Run()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Debug().Msg("Shutting down the monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
