package adapter

import (
	"context"
	"time"
)

// InvoiceNotice carries everything the "invoice generated" mail needs.
type InvoiceNotice struct {
	CustomerName  string
	CustomerEmail string
	PlanName      string
	AmountMinor   int64
	DueDate       time.Time
	PeriodStart   time.Time
	PeriodEnd     time.Time
	InvoiceNumber string
}

// PaymentNotice covers both success and failure mails.
type PaymentNotice struct {
	CustomerName  string
	CustomerEmail string
	AmountMinor   int64
	InvoiceNumber string
	Reason        string // failure reason, empty on success
}

// Notifier delivers customer-facing billing mail. All sends are
// fire-and-forget from the caller's perspective: a notification failure must
// never roll back the billing write that preceded it.
type Notifier interface {
	SendInvoiceGenerated(ctx context.Context, n InvoiceNotice) error
	SendPaymentSuccess(ctx context.Context, n PaymentNotice) error
	SendPaymentFailure(ctx context.Context, n PaymentNotice) error
}
