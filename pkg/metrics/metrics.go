package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream metrics are registered on the default prometheus registry and served
// at /metrics.
var (
	StreamsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "textstream",
		Name:      "streams_started_total",
		Help:      "Producer runs started.",
	})

	StreamsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "textstream",
		Name:      "streams_finalized_total",
		Help:      "Stream records that reached a terminal status, by status.",
	}, []string{"status"})

	FragmentsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "textstream",
		Name:      "fragments_appended_total",
		Help:      "Fragments appended to stream records.",
	})

	ActiveProducers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "textstream",
		Name:      "active_producers",
		Help:      "Producer runs currently in flight on this instance.",
	})

	ActiveSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "textstream",
		Name:      "active_subscribers",
		Help:      "Open subscriptions by transport.",
	}, []string{"transport"})

	StreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "textstream",
		Name:      "stream_duration_seconds",
		Help:      "Wall time from producer start to finalization.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	})
)
