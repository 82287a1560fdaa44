package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sweepEnqueuedTotal,
		invoicesGeneratedTotal,
		prorationDroppedTotal,
	)
}

var (
	sweepEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_sweep_enqueued_total",
			Help: "Invoice-generation jobs enqueued by the daily sweep.",
		},
	)

	invoicesGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoices_generated_total",
			Help: "Invoices created by the billing worker, labeled by outcome.",
		},
		[]string{"outcome"}, // 'created', 'duplicate', 'failed'
	)

	prorationDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proration_delta_dropped_total",
			Help: "Plan changes whose prorated delta had no pending invoice to land on.",
		},
	)
)

func AddSweepEnqueued(n int) {
	sweepEnqueuedTotal.Add(float64(n))
}

func IncInvoiceGenerated(outcome string) {
	invoicesGeneratedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncProrationDropped() {
	prorationDroppedTotal.Inc()
}
