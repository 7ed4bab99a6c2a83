package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesPresented = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "render",
		Name:      "frames_presented_total",
		Help:      "Number of video frames pushed to the containers.",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "render",
		Name:      "frames_dropped_total",
		Help:      "Number of late video frames skipped by the pacing loop.",
	})
	samplesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "render",
		Name:      "pcm_samples_total",
		Help:      "Number of PCM samples written to the audio device.",
	})
)
