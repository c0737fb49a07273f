package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSessionGauge(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.SessionCreated()
	m.SessionCreated()
	m.SessionEnded("expired")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues("expired")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionCreated()
		m.IncrementDocument("accepted")
		m.IncrementOTPSent("echo")
		m.IncrementAssistantMessage("greeting")
	})
}
