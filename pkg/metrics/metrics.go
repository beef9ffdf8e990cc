package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frontdesk"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by service, route and status.",
		},
		[]string{"service", "route", "method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by service and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "route", "method"},
	)

	bookingsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_created_total",
		Help:      "Bookings committed.",
	})

	bookingsExtended = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_extended_total",
		Help:      "Stay extensions committed.",
	})

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected for overlapping an existing stay.",
		},
		[]string{"operation"},
	)

	otpIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_issued_total",
		Help:      "Password reset codes issued.",
	})

	otpRedeemed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_redeem_total",
			Help:      "Password reset attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers collectors with the default registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingsCreated,
			bookingsExtended,
			bookingConflicts,
			otpIssued,
			otpRedeemed,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(service, route, method, status string, seconds float64) {
	httpRequests.WithLabelValues(service, route, method, status).Inc()
	httpDuration.WithLabelValues(service, route, method).Observe(seconds)
}

func IncBookingCreated() { bookingsCreated.Inc() }

func IncBookingExtended() { bookingsExtended.Inc() }

// IncBookingConflict counts a rejected create or extend.
func IncBookingConflict(operation string) {
	bookingConflicts.WithLabelValues(operation).Inc()
}

func IncOTPIssued() { otpIssued.Inc() }

func IncOTPRedeem(success bool) {
	result := "rejected"
	if success {
		result = "accepted"
	}
	otpRedeemed.WithLabelValues(result).Inc()
}
