package adapter

import (
	"context"
	"time"
)

// Queue names. Billing jobs run immediately; payment-retry jobs are delayed.
const (
	QueueBilling      = "billing"
	QueuePaymentRetry = "payment-retry"
)

type JobKind string

const (
	JobGenerateInvoice JobKind = "generate_invoice"
	JobPaymentRetry    JobKind = "payment_retry"
)

// Job is one unit of deferred work. Attempt is meaningful only for
// payment-retry jobs.
type Job struct {
	ID             string  `json:"id"`
	Queue          string  `json:"queue"`
	Kind           JobKind `json:"kind"`
	SubscriptionID string  `json:"subscription_id"`
	Attempt        int     `json:"attempt,omitempty"`
}

// JobQueue is a durable delayed-job queue with at-least-once delivery.
// Handlers must tolerate redelivery.
type JobQueue interface {
	Enqueue(ctx context.Context, job Job, delay time.Duration) error
}
