package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bridge"

// Collectors are process-wide. Gauges are only ever moved by deltas so that
// several bridges in one process sum instead of overwriting each other.

var (
	EventsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "events_sent_total",
		Help:      "Events written to the consumer channel, by event type",
	}, []string{"type"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "events_dropped_total",
		Help:      "Events dropped because the consumer channel was not open or the write failed",
	}, []string{"type"})

	ChannelConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "connected",
		Help:      "Open consumer channels",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "reconnect_attempts_total",
		Help:      "Consumer channel reconnection attempts",
	})

	DiscoveryPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "polls_total",
		Help:      "Discovery iterations, by result",
	}, []string{"result"})

	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "poll_duration_seconds",
		Help:      "Latency of the provider discovery call",
		Buckets:   prometheus.DefBuckets,
	})

	DiscoveredSeries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "series",
		Help:      "Series returned by the last successful discovery",
	})

	QueryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "minimal_query_fallbacks_total",
		Help:      "Discovery calls that fell back to the minimal query",
	})

	ConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "consecutive_failures",
		Help:      "Current runs of failed discovery iterations, summed over bridges",
	})

	FeedsSuspended = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "feeds_suspended",
		Help:      "Bridges whose provider breaker holds all markets suspended",
	})

	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Breaker state changes, by action and reason",
	}, []string{"action", "reason"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "inplay",
		Name:      "sessions",
		Help:      "Running in-play sessions",
	})

	FramesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inplay",
		Name:      "frames_total",
		Help:      "series_state frames produced by in-play sessions",
	})

	Anomalies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inplay",
		Name:      "score_anomalies_total",
		Help:      "Frames that tripped the early-round score anomaly rule",
	})

	LivePollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inplay",
		Name:      "live_poll_errors_total",
		Help:      "Failed round queries of live in-play sessions",
	})

	JournalInserts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "journal",
		Name:      "inserts_total",
		Help:      "Events persisted to the journal",
	})

	JournalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "journal",
		Name:      "errors_total",
		Help:      "Failed journal batch inserts",
	})

	JournalDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "journal",
		Name:      "dropped_total",
		Help:      "Events discarded because the journal buffer was full or closed",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
