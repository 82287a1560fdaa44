package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// CustomerRepository is the port for customers. The billing core only reads.
type CustomerRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Customer, error)
}
