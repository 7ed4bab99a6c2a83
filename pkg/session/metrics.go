package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "session",
		Name:      "plays_total",
		Help:      "Number of started playbacks.",
	})
	viewersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "playout",
		Subsystem: "session",
		Name:      "viewers",
		Help:      "Number of connected viewers.",
	})
	framesCast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "cast",
		Name:      "frames_total",
		Help:      "Number of JPEG frames fanned out to the viewers.",
	})
	audioFramesCast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "cast",
		Name:      "audio_frames_total",
		Help:      "Number of Opus frames fanned out to the viewers.",
	})
)
