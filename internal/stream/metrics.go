package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canliang",
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Frames handed to consumers.",
	})
	placeholderFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canliang",
		Subsystem: "stream",
		Name:      "placeholder_frames_total",
		Help:      "Black frames emitted instead of a capture.",
	})
	encodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canliang",
		Subsystem: "stream",
		Name:      "encode_failures_total",
		Help:      "Ticks whose frame could not be encoded.",
	})
	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canliang",
		Subsystem: "stream",
		Name:      "tick_errors_total",
		Help:      "Ticks aborted by an unexpected error.",
	})
	frameBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "canliang",
		Subsystem: "stream",
		Name:      "frame_bytes",
		Help:      "Size of encoded frames.",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 8),
	})
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "canliang",
		Subsystem: "stream",
		Name:      "active_sessions",
		Help:      "Sessions currently running.",
	})
)
