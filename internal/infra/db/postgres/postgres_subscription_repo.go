package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, customer_id, plan_id, status, start_date, end_date, next_billing_date, retry_count, next_retry, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.CustomerSubscription) error {
	const q = `
INSERT INTO customer_subscriptions (
  id, customer_id, plan_id, status, start_date, end_date, next_billing_date, retry_count, next_retry, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, status=$4, end_date=$6, next_billing_date=$7, retry_count=$8, next_retry=$9, updated_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.CustomerID, s.PlanID, s.Status, s.StartDate, s.EndDate, s.NextBillingDate, s.RetryCount, s.NextRetry, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CustomerSubscription, error) {
	const q = `SELECT ` + subColumns + ` FROM customer_subscriptions WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

// FindDueForBilling matches on the calendar day of next_billing_date so a
// sweep that runs late in the day still finds everything due that day.
func (r *subscriptionRepo) FindDueForBilling(ctx context.Context, tx repository.Tx, day time.Time) ([]*model.CustomerSubscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM customer_subscriptions
 WHERE status='active'
   AND next_billing_date IS NOT NULL
   AND next_billing_date::date = $1::date
 ORDER BY next_billing_date ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, day)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CustomerSubscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM customer_subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.CustomerSubscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	s := &model.CustomerSubscription{}
	var status string
	if err := row.Scan(&s.ID, &s.CustomerID, &s.PlanID, &status, &s.StartDate, &s.EndDate, &s.NextBillingDate, &s.RetryCount, &s.NextRetry, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}

func scanSubscription(rows pgx.Rows) (*model.CustomerSubscription, error) {
	s := &model.CustomerSubscription{}
	var status string
	if err := rows.Scan(&s.ID, &s.CustomerID, &s.PlanID, &status, &s.StartDate, &s.EndDate, &s.NextBillingDate, &s.RetryCount, &s.NextRetry, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
