package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playout",
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Number of video frames fanned out to the consumers.",
	})
	consumerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "playout",
		Subsystem: "capture",
		Name:      "consumers",
		Help:      "Number of attached capture consumers.",
	})
	stretchRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "playout",
		Subsystem: "capture",
		Name:      "stretch_ratio",
		Help:      "Current media-to-output time ratio of the capture audio.",
	})
)
