// Package observability exposes Prometheus counters for the timer engine.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timerbar"

var (
	timerStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "timer",
		Name:      "starts_total",
		Help:      "Timer start attempts by result (ok, invalid, remote_error).",
	}, []string{"result"})
	timerStops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "timer",
		Name:      "stops_total",
		Help:      "Timer stop attempts by result (ok, remote_error).",
	}, []string{"result"})
	broadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "broadcasts_total",
		Help:      "Timer-changed broadcasts published, by action.",
	}, []string{"action"})
	idleEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "idle",
		Name:      "events_total",
		Help:      "Idle episodes detected.",
	})
	idleResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "idle",
		Name:      "resolutions_total",
		Help:      "Idle prompt resolutions, by action (keep, discard, stop_keep).",
	}, []string{"action"})
	nonCriticalFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "noncritical_failures_total",
		Help:      "Best-effort gateway calls that failed and were swallowed, by operation.",
	}, []string{"operation"})
	debouncedWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "debounced_writes_total",
		Help:      "Debounced running-timer writes flushed, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(timerStarts, timerStops, broadcasts, idleEvents, idleResolutions, nonCriticalFailures, debouncedWrites)
}

// RecordStart counts a start attempt.
func RecordStart(result string) {
	timerStarts.WithLabelValues(result).Inc()
}

// RecordStop counts a stop attempt.
func RecordStop(result string) {
	timerStops.WithLabelValues(result).Inc()
}

// RecordBroadcast counts a published timer-changed message.
func RecordBroadcast(action string) {
	broadcasts.WithLabelValues(action).Inc()
}

// RecordIdleEvent counts a detected idle episode.
func RecordIdleEvent() {
	idleEvents.Inc()
}

// RecordIdleResolution counts a resolved idle prompt.
func RecordIdleResolution(action string) {
	idleResolutions.WithLabelValues(action).Inc()
}

// RecordNonCriticalFailure counts a swallowed best-effort failure.
func RecordNonCriticalFailure(operation string) {
	nonCriticalFailures.WithLabelValues(operation).Inc()
}

// RecordDebouncedWrite counts a flushed debounced write.
func RecordDebouncedWrite(result string) {
	debouncedWrites.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
