// Package metrics exposes job pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crparser/internal/domain"
)

const namespace = "crparser"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	jobsSubmitted      prometheus.Counter
	jobsRejected       prometheus.Counter
	jobsCompleted      *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	tablesExtracted    prometheus.Counter
	queueDepth         prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Reports accepted for processing.",
		}),
		jobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "Reports rejected because the queue was full.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Jobs that reached a terminal status.",
		}, []string{"status"}),
		extractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of the document pipeline per job.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		tablesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_extracted_total",
			Help:      "Tables extracted across all jobs.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobsSubmitted,
		m.jobsRejected,
		m.jobsCompleted,
		m.extractionDuration,
		m.tablesExtracted,
		m.queueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) JobSubmitted() { m.jobsSubmitted.Inc() }

func (m *Metrics) JobRejected() { m.jobsRejected.Inc() }

// JobCompleted records a terminal job, its pipeline duration and table count.
func (m *Metrics) JobCompleted(status domain.JobStatus, took time.Duration, tables int) {
	m.jobsCompleted.WithLabelValues(string(status)).Inc()
	m.extractionDuration.Observe(took.Seconds())
	m.tablesExtracted.Add(float64(tables))
}

func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }
