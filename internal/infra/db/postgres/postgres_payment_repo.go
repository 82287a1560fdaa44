package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure paymentRepo implements repository.PaymentRepository
var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, invoice_id, method, amount_minor, status, reference_number, customer_name, payment_date, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.InvoiceID, p.Method, p.AmountMinor, p.Status, p.ReferenceNumber, p.CustomerName, p.PaymentDate, p.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	const q = `
SELECT id, invoice_id, method, amount_minor, status, reference_number, customer_name, payment_date, created_at
  FROM payments
 WHERE invoice_id=$1
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, invoiceID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := &model.Payment{}
		var status string
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Method, &p.AmountMinor, &status, &p.ReferenceNumber, &p.CustomerName, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		p.Status = model.PaymentStatus(status)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
