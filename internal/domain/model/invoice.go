package model

import (
	"time"

	"subscription-billing/internal/domain"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusFailed  InvoiceStatus = "failed"
)

// Invoice is one billing-cycle charge against a subscription. Number is a
// ULID so invoice numbers sort by creation time. At most one invoice per
// subscription may be pending at any moment; repositories and the
// per-subscription lock enforce that discipline.
type Invoice struct {
	ID             string // UUID
	Number         string // ULID, customer-facing invoice number
	SubscriptionID string
	AmountMinor    int64 // minor currency units
	Status         InvoiceStatus
	PaymentDueDate time.Time
	PaymentDate    *time.Time // set when paid
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewInvoice constructs a pending invoice.
func NewInvoice(id, number, subscriptionID string, amountMinor int64, dueDate time.Time) (*Invoice, error) {
	if id == "" || number == "" || subscriptionID == "" || amountMinor < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Invoice{
		ID:             id,
		Number:         number,
		SubscriptionID: subscriptionID,
		AmountMinor:    amountMinor,
		Status:         InvoiceStatusPending,
		PaymentDueDate: dueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkPaid finalizes the invoice. Paying an already-paid invoice is an error;
// a failed invoice may still be paid (the retry loop does exactly that).
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return domain.ErrInvalidTransition
	}
	i.Status = InvoiceStatusPaid
	i.PaymentDate = &at
	i.UpdatedAt = time.Now()
	return nil
}

// MarkFailed flags a pending invoice whose charge was declined so the retry
// loop can find it later.
func (i *Invoice) MarkFailed() error {
	if i.Status != InvoiceStatusPending {
		return domain.ErrInvalidTransition
	}
	i.Status = InvoiceStatusFailed
	i.UpdatedAt = time.Now()
	return nil
}

// AddAmount applies a (possibly negative) proration delta. The amount never
// drops below zero.
func (i *Invoice) AddAmount(deltaMinor int64) error {
	if i.Status != InvoiceStatusPending {
		return domain.ErrInvalidTransition
	}
	next := i.AmountMinor + deltaMinor
	if next < 0 {
		next = 0
	}
	i.AmountMinor = next
	i.UpdatedAt = time.Now()
	return nil
}
