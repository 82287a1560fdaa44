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

// Ensure customerRepo implements repository.CustomerRepository
var _ repository.CustomerRepository = (*customerRepo)(nil)

type customerRepo struct {
	pool *pgxpool.Pool
}

func NewCustomerRepo(pool *pgxpool.Pool) *customerRepo {
	return &customerRepo{pool: pool}
}

func (r *customerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	const q = `SELECT id, name, email, created_at FROM customers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	c := &model.Customer{}
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}
