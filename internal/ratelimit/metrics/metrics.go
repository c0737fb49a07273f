package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitRejectedTotal prometheus.Counter
	RateLimitErrorsTotal   prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitRejectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bharat_kyc_ratelimit_rejected_total",
			Help: "Total number of requests rejected by the per-IP limiter",
		}),
		RateLimitErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bharat_kyc_ratelimit_errors_total",
			Help: "Total number of limiter failures that let a request through",
		}),
	}
}

func (m *Metrics) IncrementRejected() {
	m.RateLimitRejectedTotal.Inc()
}

func (m *Metrics) IncrementErrors() {
	m.RateLimitErrorsTotal.Inc()
}
