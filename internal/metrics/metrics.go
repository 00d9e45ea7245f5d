// ABOUTME: Prometheus counters/gauges exposed alongside the websocket endpoint
// ABOUTME: Grounded on ManuGH-xg2g's promauto.New*/prometheus.*Vec registration style
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessioncore_decode_errors_total",
		Help: "Non-fatal per-packet decode errors counted across all tracks (spec step 4).",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessioncore_active_sessions",
		Help: "Number of sessions currently marked active.",
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessioncore_websocket_connections",
		Help: "Number of currently open websocket connections.",
	})
)

// DecodeErrorCounter satisfies decode.DecodeErrorCounter, feeding the
// non-fatal decode error counter.
type DecodeErrorCounter struct{}

func (DecodeErrorCounter) Add(n int) {
	decodeErrorsTotal.Add(float64(n))
}

// SetActiveSessions reports the current number of active sessions, e.g.
// called after every persistence mutation that may change it.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// IncWebsocketConnections/DecWebsocketConnections track live connections as
// a Hub accepts and drops them.
func IncWebsocketConnections() { websocketConnections.Inc() }
func DecWebsocketConnections() { websocketConnections.Dec() }

// Handler returns the /metrics HTTP handler to mount on the server mux
// alongside the websocket endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
