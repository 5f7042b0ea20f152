// Package metrics exposes Prometheus collectors for the catalog crawler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	entitiesProcessedTotal       *prometheus.CounterVec
	jobsSkippedTotal             *prometheus.CounterVec
	entitiesRetiredTotal         *prometheus.CounterVec
	sessionsTotal                *prometheus.CounterVec
	sourceRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call this
// function multiple times.
func Init() {
	once.Do(func() {
		entitiesProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_entities_processed_total",
				Help: "Total number of entities normalized and upserted, labeled by kind.",
			},
			[]string{"kind"},
		)

		jobsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_jobs_skipped_total",
				Help: "Total number of jobs dropped without processing, labeled by kind and reason.",
			},
			[]string{"kind", "reason"},
		)

		entitiesRetiredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_entities_retired_total",
				Help: "Total number of entities tombstoned by reconciliation, labeled by kind.",
			},
			[]string{"kind"},
		)

		sessionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sessions_total",
				Help: "Total number of finished crawl sessions, labeled by final status.",
			},
			[]string{"status"},
		)

		sourceRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_source_request_duration_seconds",
				Help:    "Histogram of source API request latencies, labeled by endpoint.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		)
	})
}

// EntityProcessed increments the processed counter for a kind.
func EntityProcessed(kind string) {
	if entitiesProcessedTotal != nil {
		entitiesProcessedTotal.WithLabelValues(kind).Inc()
	}
}

// JobSkipped increments the skipped counter for a kind and reason.
func JobSkipped(kind, reason string) {
	if jobsSkippedTotal != nil {
		jobsSkippedTotal.WithLabelValues(kind, reason).Inc()
	}
}

// EntitiesRetired adds n to the retired counter for a kind.
func EntitiesRetired(kind string, n int) {
	if entitiesRetiredTotal != nil {
		entitiesRetiredTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// SessionFinished increments the finished-sessions counter for a status.
func SessionFinished(status string) {
	if sessionsTotal != nil {
		sessionsTotal.WithLabelValues(status).Inc()
	}
}

// ObserveSourceRequest records one source API request latency.
func ObserveSourceRequest(endpoint string, d time.Duration) {
	if sourceRequestDurationSeconds != nil {
		sourceRequestDurationSeconds.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
