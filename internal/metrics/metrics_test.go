package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecision(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDecision(true, 0.01)
	m.ObserveDecision(true, 0.02)
	m.ObserveDecision(false, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdmissionDecisionsTotal.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdmissionDecisionsTotal.WithLabelValues("rejected")))
}

func TestCollaboratorErrorAndCache(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CollaboratorError("usage")
	m.CacheResult("hit")
	m.CacheResult("hit")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollaboratorErrorsTotal.WithLabelValues("usage")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CollaboratorErrorsTotal.WithLabelValues("quota")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuotaCacheTotal.WithLabelValues("hit")))
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
