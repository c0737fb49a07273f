package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the onboarding steps.
type Metrics struct {
	// Wizard sessions currently held in memory
	ActiveSessions prometheus.Gauge

	// Sessions created and torn down, by end reason
	SessionsCreated prometheus.Counter
	SessionsEnded   *prometheus.CounterVec

	// Document selections by outcome
	DocumentsTotal *prometheus.CounterVec

	// OTP sends by channel and verifications by outcome
	OTPSent     *prometheus.CounterVec
	OTPVerified *prometheus.CounterVec

	// Face step
	FaceCaptures   prometheus.Counter
	FaceCompletion prometheus.Histogram

	// Assistant messages by matched response group
	AssistantMessages *prometheus.CounterVec

	ReceiptsRendered prometheus.Counter
}

// New registers the onboarding metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bharat_kyc_active_sessions",
			Help: "Current number of wizard sessions held in memory",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bharat_kyc_sessions_created_total",
			Help: "Total wizard sessions created",
		}),
		SessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharat_kyc_sessions_ended_total",
			Help: "Total wizard sessions torn down by reason",
		}, []string{"reason"}), // reason: "closed", "expired"

		DocumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharat_kyc_documents_total",
			Help: "Document selections by outcome",
		}, []string{"outcome"}), // outcome: "accepted", "rejected"

		OTPSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharat_kyc_otp_sent_total",
			Help: "OTP codes issued by delivery channel",
		}, []string{"channel"}),
		OTPVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharat_kyc_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}), // outcome: "verified", "failed"

		FaceCaptures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bharat_kyc_face_captures_total",
			Help: "Face frames captured at the end of the countdown",
		}),
		FaceCompletion: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bharat_kyc_face_completion_seconds",
			Help:    "Time from camera grant to verification success",
			Buckets: []float64{1, 2, 4, 6, 8, 10, 15, 30, 60},
		}),

		AssistantMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bharat_kyc_assistant_messages_total",
			Help: "Assistant messages answered by response group",
		}, []string{"group"}),

		ReceiptsRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "bharat_kyc_receipts_rendered_total",
			Help: "PDF receipts rendered",
		}),
	}
}

func (m *Metrics) SessionCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionEnded(reason string) {
	if m != nil {
		m.SessionsEnded.WithLabelValues(reason).Inc()
		m.ActiveSessions.Dec()
	}
}

func (m *Metrics) IncrementDocument(outcome string) {
	if m != nil {
		m.DocumentsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementOTPSent(channel string) {
	if m != nil {
		m.OTPSent.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) IncrementOTPVerification(outcome string) {
	if m != nil {
		m.OTPVerified.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementFaceCapture() {
	if m != nil {
		m.FaceCaptures.Inc()
	}
}

// ObserveFaceCompletion records how long the face step took once the camera was granted.
func (m *Metrics) ObserveFaceCompletion(d time.Duration) {
	if m != nil {
		m.FaceCompletion.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementAssistantMessage(group string) {
	if m != nil {
		m.AssistantMessages.WithLabelValues(group).Inc()
	}
}

func (m *Metrics) IncrementReceipt() {
	if m != nil {
		m.ReceiptsRendered.Inc()
	}
}
