// Package metrics exposes listener counters in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the listener's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	PacketsReceived  prometheus.Counter
	PacketsMalformed prometheus.Counter
	PacketsFiltered  prometheus.Counter
	Samples          *prometheus.CounterVec // by verdict
	NewPasses        prometheus.Counter
	AlertsFired      prometheus.Counter
	DispatchFailures *prometheus.CounterVec // by kind
	Restarts         prometheus.Counter
}

// SessionCounter reports how many sessions are currently held.
type SessionCounter interface {
	Count() int
}

// New registers the listener collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		PacketsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "faoswatch_packets_received_total",
			Help: "Datagrams read from the UDP socket.",
		}),
		PacketsMalformed: f.NewCounter(prometheus.CounterOpts{
			Name: "faoswatch_packets_malformed_total",
			Help: "Datagrams that failed to parse as FAOS samples.",
		}),
		PacketsFiltered: f.NewCounter(prometheus.CounterOpts{
			Name: "faoswatch_packets_filtered_total",
			Help: "Samples dropped by the satellite allow-list.",
		}),
		Samples: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faoswatch_samples_total",
			Help: "Samples processed, by consistency verdict.",
		}, []string{"verdict"}),
		NewPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "faoswatch_new_passes_total",
			Help: "Sessions reset because the countdown jumped upward.",
		}),
		AlertsFired: f.NewCounter(prometheus.CounterOpts{
			Name: "faoswatch_alerts_fired_total",
			Help: "Alerts emitted by the gate.",
		}),
		DispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "faoswatch_dispatch_failures_total",
			Help: "Failed alert deliveries, by surface.",
		}, []string{"kind"}),
		Restarts: f.NewCounter(prometheus.CounterOpts{
			Name: "faoswatch_listener_restarts_total",
			Help: "Times the UDP listener was restarted after an error.",
		}),
	}
}

// TrackSessions exposes faoswatch_sessions, read from sc at scrape time so
// evictions show up without waiting for the next datagram. Call it once.
func (m *Metrics) TrackSessions(sc SessionCounter) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "faoswatch_sessions",
		Help: "Sessions currently held in the store.",
	}, func() float64 { return float64(sc.Count()) })
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
