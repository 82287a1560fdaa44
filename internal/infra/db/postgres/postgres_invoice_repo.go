package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure invoiceRepo implements repository.InvoiceRepository
var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invColumns = `id, number, subscription_id, amount_minor, status, payment_due_date, payment_date, created_at, updated_at`

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, number, subscription_id, amount_minor, status, payment_due_date, payment_date, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  amount_minor=$4, status=$5, payment_due_date=$6, payment_date=$7, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.Number, inv.SubscriptionID, inv.AmountMinor, inv.Status, inv.PaymentDueDate, inv.PaymentDate, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	const q = `SELECT ` + invColumns + ` FROM invoices WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *invoiceRepo) FindPendingBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.Invoice, error) {
	const q = `
SELECT ` + invColumns + `
  FROM invoices
 WHERE subscription_id=$1 AND status='pending'
 ORDER BY payment_due_date DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, subscriptionID)
}

func (r *invoiceRepo) FindLatestFailedBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.Invoice, error) {
	const q = `
SELECT ` + invColumns + `
  FROM invoices
 WHERE subscription_id=$1 AND status='failed'
 ORDER BY payment_due_date DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, subscriptionID)
}

func (r *invoiceRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	inv := &model.Invoice{}
	var status string
	if err := row.Scan(&inv.ID, &inv.Number, &inv.SubscriptionID, &inv.AmountMinor, &status, &inv.PaymentDueDate, &inv.PaymentDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	inv.Status = model.InvoiceStatus(status)
	return inv, nil
}
