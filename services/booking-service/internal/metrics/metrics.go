package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BookingMetrics exposes counters and histograms for the booking flow.
// All methods are safe on a nil receiver.
type BookingMetrics struct {
	bookings      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	txRetries     prometheus.Counter
	latency       *prometheus.HistogramVec
	outboxSent    prometheus.Counter
	outboxFailure prometheus.Counter
	sweeps        *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apptbook",
			Subsystem: "booking",
			Name:      "create_total",
			Help:      "Appointment create attempts by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apptbook",
			Subsystem: "booking",
			Name:      "transition_total",
			Help:      "Appointment status changes by target status and outcome",
		}, []string{"to", "outcome"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apptbook",
			Subsystem: "booking",
			Name:      "tx_retry_total",
			Help:      "Booking transactions retried after a write conflict",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apptbook",
			Subsystem: "booking",
			Name:      "operation_seconds",
			Help:      "Latency of booking operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		outboxSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apptbook",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events published to Kafka",
		}),
		outboxFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apptbook",
			Subsystem: "outbox",
			Name:      "publish_failures_total",
			Help:      "Failed outbox publish batches",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apptbook",
			Subsystem: "sweeper",
			Name:      "completed_total",
			Help:      "Appointments auto-completed by the lifecycle sweeper",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.transitions, m.txRetries, m.latency, m.outboxSent, m.outboxFailure, m.sweeps)
	return m
}

// Handler serves the given gatherer, or the default registry when nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *BookingMetrics) ObserveCreate(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
	m.latency.WithLabelValues("create").Observe(seconds)
}

func (m *BookingMetrics) ObserveTransition(to, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
	m.latency.WithLabelValues("transition").Observe(seconds)
}

func (m *BookingMetrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}

func (m *BookingMetrics) OutboxPublished(n int) {
	if m == nil {
		return
	}
	m.outboxSent.Add(float64(n))
}

func (m *BookingMetrics) OutboxFailed() {
	if m == nil {
		return
	}
	m.outboxFailure.Inc()
}

func (m *BookingMetrics) ObserveSweep(outcome string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome).Inc()
}
