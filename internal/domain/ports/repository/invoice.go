package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// InvoiceRepository is the port for invoices.
type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	// FindPendingBySubscription returns the subscription's single pending
	// invoice, or domain.ErrNotFound if there is none.
	FindPendingBySubscription(ctx context.Context, tx Tx, subscriptionID string) (*model.Invoice, error)
	// FindLatestFailedBySubscription returns the most recent failed invoice
	// ordered by due date descending, or domain.ErrNotFound.
	FindLatestFailedBySubscription(ctx context.Context, tx Tx, subscriptionID string) (*model.Invoice, error)
}
