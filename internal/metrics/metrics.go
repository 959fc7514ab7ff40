package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blobquota"

// Metrics holds the Prometheus collectors for admission checks.
type Metrics struct {
	AdmissionDecisionsTotal *prometheus.CounterVec
	AdmissionCheckDuration  prometheus.Histogram
	CollaboratorErrorsTotal *prometheus.CounterVec
	QuotaCacheTotal         *prometheus.CounterVec
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AdmissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_decisions_total",
				Help:      "Blob size checks by outcome",
			},
			[]string{"outcome"},
		),
		AdmissionCheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "admission_check_duration_seconds",
				Help:      "Time spent in a blob size check, including quota and usage lookups",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CollaboratorErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaborator_errors_total",
				Help:      "Failed quota or usage lookups",
			},
			[]string{"collaborator"},
		),
		QuotaCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_cache_total",
				Help:      "Quota cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.AdmissionDecisionsTotal,
		m.AdmissionCheckDuration,
		m.CollaboratorErrorsTotal,
		m.QuotaCacheTotal,
	)

	return m
}

func (m *Metrics) ObserveDecision(admitted bool, seconds float64) {
	outcome := "rejected"
	if admitted {
		outcome = "admitted"
	}
	m.AdmissionDecisionsTotal.WithLabelValues(outcome).Inc()
	m.AdmissionCheckDuration.Observe(seconds)
}

func (m *Metrics) CollaboratorError(name string) {
	m.CollaboratorErrorsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) CacheResult(result string) {
	m.QuotaCacheTotal.WithLabelValues(result).Inc()
}
