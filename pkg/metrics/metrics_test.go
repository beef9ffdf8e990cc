package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(bookingConflicts.WithLabelValues("extend"))
	IncBookingConflict("extend")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingConflicts.WithLabelValues("extend")))

	beforeOK := testutil.ToFloat64(otpRedeemed.WithLabelValues("accepted"))
	IncOTPRedeem(true)
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(otpRedeemed.WithLabelValues("accepted")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Register()
	ObserveHTTP("bookings", "/bookings", http.MethodPost, "201", 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "frontdesk_http_requests_total")
}
