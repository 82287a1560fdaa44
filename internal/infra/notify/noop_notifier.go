package notify

import (
	"context"

	"subscription-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier swallows all notices. Used when no notifier URL is configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (NoopNotifier) SendInvoiceGenerated(context.Context, adapter.InvoiceNotice) error { return nil }
func (NoopNotifier) SendPaymentSuccess(context.Context, adapter.PaymentNotice) error   { return nil }
func (NoopNotifier) SendPaymentFailure(context.Context, adapter.PaymentNotice) error   { return nil }
