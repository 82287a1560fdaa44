package repository

import (
	"context"
	"time"

	"subscription-billing/internal/domain/model"
)

// SubscriptionRepository is the port for customer subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.CustomerSubscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CustomerSubscription, error)
	// FindDueForBilling returns active subscriptions whose next billing date
	// falls on the given calendar day.
	FindDueForBilling(ctx context.Context, tx Tx, day time.Time) ([]*model.CustomerSubscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
