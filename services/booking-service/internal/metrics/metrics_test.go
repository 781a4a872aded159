package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveCreate("ok", 0.01)
	m.ObserveCreate("ok", 0.02)
	m.ObserveCreate("slot_conflict", 0.01)
	m.ObserveTransition("cancelled", "ok", 0.01)
	m.ObserveRetry()
	m.OutboxPublished(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues("slot_conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txRetries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.outboxSent))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveCreate("ok", 1)
	m.ObserveTransition("confirmed", "ok", 1)
	m.ObserveRetry()
	m.OutboxPublished(1)
	m.OutboxFailed()
	m.ObserveSweep("ok")
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBookingMetrics(reg).ObserveCreate("ok", 0.5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `apptbook_booking_create_total{outcome="ok"} 1`))
}
