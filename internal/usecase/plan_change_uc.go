package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"
)

// Compile-time check
var _ PlanChangeUseCase = (*planChangeUC)(nil)

// PlanChangeUseCase moves a subscription to a different plan mid-cycle and
// prorates the open invoice for the unused part of the period.
type PlanChangeUseCase interface {
	ChangePlan(ctx context.Context, subscriptionID, newPlanID string) (*model.CustomerSubscription, error)
}

type planChangeUC struct {
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	invoices repository.InvoiceRepository
	tm       repository.TransactionManager
	now      func() time.Time
	log      *zerolog.Logger
}

func NewPlanChangeUseCase(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	invoices repository.InvoiceRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *planChangeUC {
	l := logger.With().Str("component", "PlanChangeUC").Logger()
	return &planChangeUC{
		subs:     subs,
		plans:    plans,
		invoices: invoices,
		tm:       tm,
		now:      time.Now,
		log:      &l,
	}
}

func (u *planChangeUC) ChangePlan(ctx context.Context, subscriptionID, newPlanID string) (*model.CustomerSubscription, error) {
	var out *model.CustomerSubscription

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}

		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		newPlan, err := u.plans.FindByID(ctx, tx, newPlanID)
		if err != nil {
			return fmt.Errorf("load plan %s: %w", newPlanID, err)
		}
		if newPlan.Status != model.PlanStatusActive {
			return fmt.Errorf("plan %s is archived: %w", newPlanID, domain.ErrInvalidArgument)
		}
		oldPlan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
		if err != nil {
			return fmt.Errorf("load current plan %s: %w", sub.PlanID, err)
		}

		if newPlan.Prorate && sub.NextBillingDate != nil {
			days := model.DaysRemaining(*sub.NextBillingDate, u.now())
			delta := model.ProratedDelta(oldPlan.PriceMinor, newPlan.PriceMinor, days, newPlan.BillingCycleDays)
			if delta != 0 {
				inv, err := u.invoices.FindPendingBySubscription(ctx, tx, sub.ID)
				switch {
				case err == nil:
					if err := inv.AddAmount(delta); err != nil {
						return err
					}
					if err := u.invoices.Save(ctx, tx, inv); err != nil {
						return fmt.Errorf("save prorated invoice: %w", err)
					}
				case errors.Is(err, domain.ErrNotFound):
					// No open invoice to carry the delta. The adjustment is
					// dropped, loudly: operators need to see this happening.
					metrics.IncProrationDropped()
					u.log.Warn().Str("subscription_id", sub.ID).Int64("delta_minor", delta).
						Msg("prorated delta dropped: no pending invoice")
				default:
					return err
				}
			}
		}

		sub.PlanID = newPlan.ID
		sub.UpdatedAt = u.now()
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("save subscription plan change: %w", err)
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
