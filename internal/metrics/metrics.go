// Package metrics owns the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InboxAppended   prometheus.Counter
	InboxImported   prometheus.Counter
	InboxFailed     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		InboxAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_appended_total",
			Help: "Messages appended to the pending-task inbox",
		}),
		InboxImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_imported_total",
			Help: "Inbox entries imported as todos",
		}),
		InboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_import_failures_total",
			Help: "Inbox entries that could not be imported",
		}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.InboxAppended,
		m.InboxImported,
		m.InboxFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
