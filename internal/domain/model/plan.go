package model

import (
	"time"

	"subscription-billing/internal/domain"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// SubscriptionPlan is a purchasable recurring plan. Price is stored in minor
// currency units (cents) to avoid float errors. Plans are never hard-deleted;
// retiring a plan is a transition to PlanStatusArchived.
type SubscriptionPlan struct {
	ID               string // UUID
	Name             string
	PriceMinor       int64 // minor units (e.g. cents)
	BillingCycleDays int
	Prorate          bool
	Status           PlanStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, priceMinor int64, billingCycleDays int, prorate bool) (*SubscriptionPlan, error) {
	if id == "" || name == "" || priceMinor < 0 || billingCycleDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &SubscriptionPlan{
		ID:               id,
		Name:             name,
		PriceMinor:       priceMinor,
		BillingCycleDays: billingCycleDays,
		Prorate:          prorate,
		Status:           PlanStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Archive soft-retires the plan. Archived plans stay readable for existing
// subscriptions but cannot be subscribed to.
func (p *SubscriptionPlan) Archive() {
	p.Status = PlanStatusArchived
	p.UpdatedAt = time.Now()
}
