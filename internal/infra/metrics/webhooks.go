package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(webhookEventsTotal) }

var webhookEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook events, labeled by kind and result.",
	},
	[]string{"kind", "result"}, // result: 'processed', 'ignored', 'rejected', 'error'
)

func IncWebhookEvent(kind, result string) {
	webhookEventsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
