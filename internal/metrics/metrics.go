package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harborbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	flowsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "harborbook",
			Name:      "booking_flows_started_total",
			Help:      "Booking flows begun by users.",
		},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harborbook",
			Name:      "booking_submissions_total",
			Help:      "Booking submissions by result.",
		},
		[]string{"result"},
	)

	paymentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harborbook",
			Name:      "payment_outcomes_total",
			Help:      "Settled payment attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, flowsStarted, submissions, paymentOutcomes)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncFlowStarted counts a newly begun booking flow.
func IncFlowStarted() {
	flowsStarted.Inc()
}

// IncSubmission counts a booking submission attempt by result (ok, rejected, error).
func IncSubmission(result string) {
	submissions.WithLabelValues(result).Inc()
}

// IncPaymentOutcome counts a settled payment attempt (success, failure,
// pending_verification, abandoned).
func IncPaymentOutcome(outcome string) {
	paymentOutcomes.WithLabelValues(outcome).Inc()
}
