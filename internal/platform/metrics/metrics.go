package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the wire service metrics. A nil *Metrics is a no-op.
type Metrics struct {
	StatusUpdates        *prometheus.CounterVec
	StatusUpdateFailures *prometheus.CounterVec
	DoddFrankRuns        *prometheus.CounterVec
	DoddFrankReleased    prometheus.Counter
	PaymentRequests      *prometheus.CounterVec
}

// New creates and registers the wire service metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_status_updates_total",
			Help: "Wire status updates applied, by source message and resulting status",
		}, []string{"source", "status"}),
		StatusUpdateFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_status_update_failures_total",
			Help: "Status messages that could not be applied, by source message and reason",
		}, []string{"source", "reason"}),
		DoddFrankRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_dodd_frank_runs_total",
			Help: "Dodd-Frank cancellation window passes, by result",
		}, []string{"result"}),
		DoddFrankReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "wires_dodd_frank_released_total",
			Help: "Wires whose cancellation window closed",
		}),
		PaymentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wires_payment_requests_total",
			Help: "Payment requests published, by result",
		}, []string{"result"}),
	}
}

// IncrementStatusUpdate counts an applied status update.
func (m *Metrics) IncrementStatusUpdate(source, status string) {
	if m == nil {
		return
	}
	m.StatusUpdates.WithLabelValues(source, status).Inc()
}

// IncrementStatusUpdateFailure counts a status message that was not applied.
func (m *Metrics) IncrementStatusUpdateFailure(source, reason string) {
	if m == nil {
		return
	}
	m.StatusUpdateFailures.WithLabelValues(source, reason).Inc()
}

// IncrementDoddFrankRun counts one scheduler pass.
func (m *Metrics) IncrementDoddFrankRun(result string) {
	if m == nil {
		return
	}
	m.DoddFrankRuns.WithLabelValues(result).Inc()
}

// IncrementDoddFrankReleased counts a wire leaving its cancellation window.
func (m *Metrics) IncrementDoddFrankReleased() {
	if m == nil {
		return
	}
	m.DoddFrankReleased.Inc()
}

// IncrementPaymentRequest counts a payment request publish attempt.
func (m *Metrics) IncrementPaymentRequest(result string) {
	if m == nil {
		return
	}
	m.PaymentRequests.WithLabelValues(result).Inc()
}
