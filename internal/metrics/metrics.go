package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Operations *prometheus.CounterVec
	Syncs      *prometheus.CounterVec
	Requests   *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
	Sessions   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarshop",
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations by category and outcome.",
		}, []string{"op", "outcome"}),
		Syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarshop",
			Subsystem: "cart",
			Name:      "syncs_total",
			Help:      "Background cart syncs by result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarshop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solarshop",
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solarshop",
			Subsystem: "cart",
			Name:      "sessions",
			Help:      "Cart sessions held in memory.",
		}),
	}

	reg.MustRegister(m.Operations, m.Syncs, m.Requests, m.LatencyMS, m.Sessions)
	return m
}

// Operation records one finished cart operation. Safe on a nil receiver.
func (m *Metrics) Operation(op, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Sync(result string) {
	if m == nil {
		return
	}
	m.Syncs.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.Sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.Sessions.Dec()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
