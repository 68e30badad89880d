package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forcelog"

// Metrics holds the viewer collectors on a private registry so that several
// servers may live in one process
type Metrics struct {
	registry *prometheus.Registry

	Uploads      *prometheus.CounterVec
	IngestRows   prometheus.Histogram
	Sessions     prometheus.Gauge
	ChartRenders *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded rig logs by result",
		}, []string{"result"}),
		IngestRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_rows",
			Help:      "Rows normalized per successful upload",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live viewer sessions",
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Rendered charts by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.Uploads,
		m.IngestRows,
		m.Sessions,
		m.ChartRenders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
