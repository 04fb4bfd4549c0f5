package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		liveSessions,
		liveTurns,
		liveStartLatencyMs,
		liveEvents,
	)
}

var (
	liveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_sessions_active",
			Help: "Upstream live sessions currently open.",
		},
	)

	liveTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_turns_total",
			Help: "Completed model turns per model.",
		},
		[]string{"model"},
	)

	liveStartLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "live_start_latency_ms",
			Help:    "Live session startup latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		},
		[]string{"model", "success"},
	)

	liveEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_events_total",
			Help: "Events drained from upstream by kind (audio/text/tool_call/turn_complete/error).",
		},
		[]string{"kind"},
	)
)

func LiveSessionOpened()       { liveSessions.Inc() }
func LiveSessionClosed()       { liveSessions.Dec() }
func IncLiveTurn(model string) { liveTurns.WithLabelValues(norm(model)).Inc() }
func IncLiveEvent(kind string) { liveEvents.WithLabelValues(norm(kind)).Inc() }

func ObserveLiveStart(model string, latencyMs int, success bool) {
	liveStartLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
