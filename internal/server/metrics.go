package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/normalize"
)

const metricsNamespace = "threatlens"

// outcomeError labels scans whose provider call failed.
const outcomeError = "error"

// Metrics holds the Prometheus metrics for threatlens.
// It implements scanner.Observer so that it can be passed to scanner.WithObserver.
type Metrics struct {
	ScansTotal      *prometheus.CounterVec
	ScanDuration    *prometheus.HistogramVec
	CompleterErrors *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ScansTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "scans_total",
				Help:      "Total number of scans by kind and outcome",
			},
			[]string{"kind", "outcome"}, // outcome=parsed/fallback/error
		),
		ScanDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "scan_duration_seconds",
				Help:      "Scan duration in seconds, provider call included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "source"},
		),
		CompleterErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "completer_errors_total",
				Help:      "Total number of failed provider calls",
			},
			[]string{"source"},
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

// ObserveScan records one scan attempt.
func (m *Metrics) ObserveScan(kind model.Kind, source string, outcome normalize.Outcome, elapsed time.Duration, err error) {
	if err != nil {
		m.ScansTotal.WithLabelValues(kind.String(), outcomeError).Inc()
		m.CompleterErrors.WithLabelValues(source).Inc()
		return
	}
	m.ScansTotal.WithLabelValues(kind.String(), outcome.String()).Inc()
	m.ScanDuration.WithLabelValues(kind.String(), source).Observe(elapsed.Seconds())
}
