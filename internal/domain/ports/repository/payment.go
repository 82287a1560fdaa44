package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// PaymentRepository is the port for payment records.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	ListByInvoice(ctx context.Context, tx Tx, invoiceID string) ([]*model.Payment, error)
}
