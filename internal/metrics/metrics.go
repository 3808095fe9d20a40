package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by source (direct or promotion).",
		},
		[]string{"source"},
	)

	bookingCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled, by refund outcome.",
		},
		[]string{"refunded"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "booking_rejected_total",
			Help:      "Count of booking attempts rejected, by reason.",
		},
		[]string{"reason"},
	)

	waitlistJoined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "waitlist_joined_total",
			Help:      "Count of waitlist entries created.",
		},
	)

	waitlistEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "waitlist_evicted_total",
			Help:      "Count of waitlist entries evicted for empty session balance.",
		},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gymbook",
			Name:      "reminders_sent_total",
			Help:      "Count of class reminders enqueued for delivery.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests, bookingCreated, bookingCancelled,
			bookingRejected, waitlistJoined, waitlistEvicted,
			remindersSent,
		)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated(source string) {
	bookingCreated.WithLabelValues(source).Inc()
}

func IncBookingCancelled(refunded bool) {
	label := "no"
	if refunded {
		label = "yes"
	}
	bookingCancelled.WithLabelValues(label).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncWaitlistJoined() {
	waitlistJoined.Inc()
}

func IncWaitlistEvicted() {
	waitlistEvicted.Inc()
}

func IncReminderSent() {
	remindersSent.Inc()
}
