package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		relayConnections,
		relayFrames,
		relayErrors,
		relayAudioBytes,
	)
}

var (
	relayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Number of websocket relay connections currently active.",
		},
	)

	relayFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_total",
			Help: "Relay frames by type and direction (in=client->server, out=server->client).",
		},
		[]string{"type", "direction"},
	)

	relayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_errors_total",
			Help: "Relay failures by stage (startup, inbound, drain, persist).",
		},
		[]string{"stage"},
	)

	relayAudioBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_audio_bytes_total",
			Help: "Raw PCM bytes relayed, by direction.",
		},
		[]string{"direction"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ConnOpened()              { relayConnections.Inc() }
func ConnClosed()              { relayConnections.Dec() }
func IncFrame(typ, dir string) { relayFrames.WithLabelValues(norm(typ), norm(dir)).Inc() }
func IncRelayError(stage string) {
	relayErrors.WithLabelValues(norm(stage)).Inc()
}
func AddAudioBytes(dir string, n int) {
	relayAudioBytes.WithLabelValues(norm(dir)).Add(float64(n))
}
