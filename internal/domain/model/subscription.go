package model

import (
	"time"

	"subscription-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusOverdue   SubscriptionStatus = "overdue"
	SubscriptionStatusExhausted SubscriptionStatus = "exhausted"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// dunningTransitions is the explicit retry-lifecycle state machine:
// active -> overdue on a failed payment, overdue -> active on a confirmed
// payment, overdue -> exhausted when the retry budget runs out. Exhausted
// subscriptions can only come back through a confirmed payment.
var dunningTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusActive:    {SubscriptionStatusOverdue, SubscriptionStatusCancelled},
	SubscriptionStatusOverdue:   {SubscriptionStatusActive, SubscriptionStatusExhausted, SubscriptionStatusCancelled},
	SubscriptionStatusExhausted: {SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusCancelled: {},
}

// CanTransition reports whether moving from -> to is a legal dunning transition.
func CanTransition(from, to SubscriptionStatus) bool {
	for _, next := range dunningTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CustomerSubscription is one customer's recurring subscription to a plan.
//
// Invariants:
//   - RetryCount resets to 0 only on a confirmed successful payment.
//   - NextBillingDate is nil only for cancelled subscriptions.
type CustomerSubscription struct {
	ID              string // UUID
	CustomerID      string // UUID of customer
	PlanID          string // UUID of plan
	Status          SubscriptionStatus
	StartDate       time.Time
	EndDate         *time.Time // nil while the subscription recurs
	NextBillingDate *time.Time // nil only when cancelled
	RetryCount      int
	NextRetry       *time.Time // nil unless a retry is scheduled
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewCustomerSubscription starts a subscription today; the first invoice is
// due one full billing cycle from the start date.
func NewCustomerSubscription(id, customerID string, plan *SubscriptionPlan, start time.Time) (*CustomerSubscription, error) {
	if id == "" || customerID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	next := NextBillingDate(start, plan.BillingCycleDays)
	now := time.Now()
	return &CustomerSubscription{
		ID:              id,
		CustomerID:      customerID,
		PlanID:          plan.ID,
		Status:          SubscriptionStatusActive,
		StartDate:       start,
		NextBillingDate: &next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *CustomerSubscription) transition(to SubscriptionStatus) error {
	if !CanTransition(s.Status, to) {
		return domain.ErrInvalidTransition
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	return nil
}

// MarkOverdue records a failed payment. The retry counter is left untouched;
// scheduling owns it.
func (s *CustomerSubscription) MarkOverdue() error {
	if s.Status == SubscriptionStatusOverdue {
		return nil
	}
	return s.transition(SubscriptionStatusOverdue)
}

// MarkExhausted is the terminal retry state: the retry budget is spent and no
// further charges will be attempted automatically.
func (s *CustomerSubscription) MarkExhausted() error {
	return s.transition(SubscriptionStatusExhausted)
}

// ConfirmPayment returns the subscription to active after a successful charge.
// Resetting the retry counter is the caller's choice (configurable).
func (s *CustomerSubscription) ConfirmPayment(resetRetries bool) error {
	if s.Status != SubscriptionStatusActive {
		if err := s.transition(SubscriptionStatusActive); err != nil {
			return err
		}
	}
	if resetRetries {
		s.RetryCount = 0
	}
	s.NextRetry = nil
	s.UpdatedAt = time.Now()
	return nil
}

// ScheduleRetry records attempt number n and the time the retry will fire.
func (s *CustomerSubscription) ScheduleRetry(attempt int, at time.Time) error {
	if attempt <= 0 {
		return domain.ErrInvalidArgument
	}
	s.RetryCount = attempt
	s.NextRetry = &at
	s.UpdatedAt = time.Now()
	return nil
}

// Cancel ends the subscription and clears the billing cadence.
func (s *CustomerSubscription) Cancel(at time.Time) error {
	if err := s.transition(SubscriptionStatusCancelled); err != nil {
		return err
	}
	s.EndDate = &at
	s.NextBillingDate = nil
	s.NextRetry = nil
	return nil
}

// AdvanceBillingDate moves NextBillingDate one cycle forward, anchored on the
// current NextBillingDate rather than on "today" so the cadence stays fixed
// even when the billing job runs late.
func (s *CustomerSubscription) AdvanceBillingDate(cycleDays int) error {
	if s.NextBillingDate == nil {
		return domain.ErrInvalidArgument
	}
	next := NextBillingDate(*s.NextBillingDate, cycleDays)
	s.NextBillingDate = &next
	s.UpdatedAt = time.Now()
	return nil
}
