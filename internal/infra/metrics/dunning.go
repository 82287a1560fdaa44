package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentRetriesTotal,
		retriesExhaustedTotal,
		paymentsTotal,
	)
}

var (
	paymentRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_retries_total",
			Help: "Payment retry attempts, labeled by outcome (succeeded/failed/skipped).",
		},
		[]string{"outcome"},
	)

	retriesExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_retries_exhausted_total",
			Help: "Subscriptions whose retry budget ran out.",
		},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment records created, labeled by status.",
		},
		[]string{"status"},
	)
)

func IncPaymentRetry(outcome string) {
	paymentRetriesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRetriesExhausted() {
	retriesExhaustedTotal.Inc()
}

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}
