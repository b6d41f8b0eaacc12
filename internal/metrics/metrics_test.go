package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCounters(t *testing.T) {
	m := New()

	m.ObserveLedger("movement")
	m.ObserveLedger("movement")
	m.ObserveInsufficientStock("disposal")
	m.ObserveLogin("success")
	m.ObserveRequest("GET", "/items", "200", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerOperations.WithLabelValues("movement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InsufficientStock.WithLabelValues("disposal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/items", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLedger("movement")
		m.ObserveInsufficientStock("movement")
		m.ObserveLogin("failure")
		m.ObserveRequest("GET", "/", "200", 0)
	})
}
