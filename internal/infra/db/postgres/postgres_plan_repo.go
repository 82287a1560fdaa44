package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Ensure planRepo implements repository.PlanRepository
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (
  id, name, price_minor, billing_cycle_days, prorate, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price_minor=$3, billing_cycle_days=$4, prorate=$5, status=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Name, p.PriceMinor, p.BillingCycleDays, p.Prorate, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	const q = `
SELECT id, name, price_minor, billing_cycle_days, prorate, status, created_at, updated_at
  FROM subscription_plans
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *planRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.PlanStatus) ([]*model.SubscriptionPlan, error) {
	const q = `
SELECT id, name, price_minor, billing_cycle_days, prorate, status, created_at, updated_at
  FROM subscription_plans
 WHERE status=$1
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status))
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.SubscriptionPlan, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	p := &model.SubscriptionPlan{}
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.BillingCycleDays, &p.Prorate, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PlanStatus(status)
	return p, nil
}

func scanPlan(rows pgx.Rows) (*model.SubscriptionPlan, error) {
	p := &model.SubscriptionPlan{}
	var status string
	if err := rows.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.BillingCycleDays, &p.Prorate, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PlanStatus(status)
	return p, nil
}
