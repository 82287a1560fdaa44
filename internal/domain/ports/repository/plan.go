package repository

import (
	"context"

	"subscription-billing/internal/domain/model"
)

// PlanRepository is the port for subscription-plan persistence. Plans are
// archived, never deleted.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.SubscriptionPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	ListByStatus(ctx context.Context, tx Tx, status model.PlanStatus) ([]*model.SubscriptionPlan, error)
}
