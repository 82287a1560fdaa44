package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"
)

// Compile-time check
var _ DunningUseCase = (*dunningUC)(nil)

// DunningUseCase drives the payment-retry state machine:
//
//	active -(payment fails)-> overdue -(retry loop)-> active | exhausted
//
// Retry cadence comes from system settings read at scheduling time, so a live
// settings change applies from the next scheduled retry onward.
type DunningUseCase interface {
	// HandleFailedPayment reacts to a failed-payment event: the subscription
	// goes overdue, its pending invoice is marked failed, the customer is
	// notified, and the first retry is scheduled.
	HandleFailedPayment(ctx context.Context, subscriptionID string) error
	// ScheduleRetry enqueues retry attempt n unless the retry budget is
	// already spent, in which case the subscription is marked exhausted.
	ScheduleRetry(ctx context.Context, subscriptionID string, attempt int) error
	// HandleRetry is the queue-consumer side of a scheduled retry.
	HandleRetry(ctx context.Context, subscriptionID string, attempt int) error
	// RetryPayment charges the latest failed invoice. Gateway failures of any
	// kind surface as ok=false, never as an error.
	RetryPayment(ctx context.Context, subscriptionID string) (bool, error)
	// ConfirmPayment returns the subscription to active after a successful
	// charge.
	ConfirmPayment(ctx context.Context, subscriptionID string) error
	// HandleSuccessfulPayment settles the pending invoice after a completed
	// checkout reported by the gateway webhook.
	HandleSuccessfulPayment(ctx context.Context, subscriptionID string, amountMinor int64, methodCode string) error
}

type dunningUC struct {
	subs      repository.SubscriptionRepository
	invoices  repository.InvoiceRepository
	payments  repository.PaymentRepository
	customers repository.CustomerRepository
	settings  repository.SettingsRepository
	gateway   adapter.PaymentGateway
	queue     adapter.JobQueue
	notifier  adapter.Notifier
	tm        repository.TransactionManager

	currency     string
	defMax       int
	defDelayMin  int
	resetRetries bool
	now          func() time.Time
	log          *zerolog.Logger
}

// DunningOptions carries the config-derived knobs.
type DunningOptions struct {
	Currency            string
	DefaultMaxRetries   int
	DefaultDelayMinutes int
	ResetRetryOnSuccess bool
}

func NewDunningUseCase(
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	customers repository.CustomerRepository,
	settings repository.SettingsRepository,
	gateway adapter.PaymentGateway,
	queue adapter.JobQueue,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	opts DunningOptions,
	logger *zerolog.Logger,
) *dunningUC {
	l := logger.With().Str("component", "DunningUC").Logger()
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.DefaultMaxRetries <= 0 {
		opts.DefaultMaxRetries = 3
	}
	if opts.DefaultDelayMinutes <= 0 {
		opts.DefaultDelayMinutes = 60
	}
	return &dunningUC{
		subs:         subs,
		invoices:     invoices,
		payments:     payments,
		customers:    customers,
		settings:     settings,
		gateway:      gateway,
		queue:        queue,
		notifier:     notifier,
		tm:           tm,
		currency:     opts.Currency,
		defMax:       opts.DefaultMaxRetries,
		defDelayMin:  opts.DefaultDelayMinutes,
		resetRetries: opts.ResetRetryOnSuccess,
		now:          time.Now,
		log:          &l,
	}
}

func (u *dunningUC) HandleFailedPayment(ctx context.Context, subscriptionID string) error {
	var notice *adapter.PaymentNotice

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		if err := sub.MarkOverdue(); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("mark overdue: %w", err)
		}

		// The retry loop charges failed invoices, so the pending invoice has
		// to carry the failure. Without this transition RetryPayment would
		// never find anything to charge.
		inv, err := u.invoices.FindPendingBySubscription(ctx, tx, sub.ID)
		switch {
		case err == nil:
			if err := inv.MarkFailed(); err != nil {
				return err
			}
			if err := u.invoices.Save(ctx, tx, inv); err != nil {
				return fmt.Errorf("mark invoice failed: %w", err)
			}
			if cust, cerr := u.customers.FindByID(ctx, tx, sub.CustomerID); cerr == nil {
				notice = &adapter.PaymentNotice{
					CustomerName:  cust.Name,
					CustomerEmail: cust.Email,
					AmountMinor:   inv.AmountMinor,
					InvoiceNumber: inv.Number,
					Reason:        "payment failed",
				}
			}
		case errors.Is(err, domain.ErrNotFound):
			u.log.Warn().Str("subscription_id", sub.ID).Msg("failed payment with no pending invoice")
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if notice != nil {
		if err := u.notifier.SendPaymentFailure(ctx, *notice); err != nil {
			u.log.Error().Err(err).Str("subscription_id", subscriptionID).Msg("payment-failure notification failed")
		}
	}
	return u.ScheduleRetry(ctx, subscriptionID, 1)
}

func (u *dunningUC) ScheduleRetry(ctx context.Context, subscriptionID string, attempt int) error {
	maxRetries, err := u.settings.GetInt(ctx, repository.SettingRetryMaxRetries, u.defMax)
	if err != nil {
		return fmt.Errorf("read %s: %w", repository.SettingRetryMaxRetries, err)
	}
	delayMin, err := u.settings.GetInt(ctx, repository.SettingRetryDelayMinutes, u.defDelayMin)
	if err != nil {
		return fmt.Errorf("read %s: %w", repository.SettingRetryDelayMinutes, err)
	}
	delay := time.Duration(delayMin) * time.Minute

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}

		if sub.RetryCount >= maxRetries {
			// Terminal: the budget is spent. No job is enqueued; the
			// subscription parks in the explicit exhausted state where an
			// operator (or a manual payment) can pick it up.
			if err := sub.MarkExhausted(); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
				return err
			}
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return fmt.Errorf("mark exhausted: %w", err)
			}
			metrics.IncRetriesExhausted()
			u.log.Warn().Str("subscription_id", sub.ID).Int("retry_count", sub.RetryCount).
				Int("max_retries", maxRetries).Msg("payment retries exhausted")
			return nil
		}

		job := adapter.Job{
			ID:             uuid.NewString(),
			Queue:          adapter.QueuePaymentRetry,
			Kind:           adapter.JobPaymentRetry,
			SubscriptionID: sub.ID,
			Attempt:        attempt,
		}
		if err := u.queue.Enqueue(ctx, job, delay); err != nil {
			return fmt.Errorf("enqueue retry: %w", err)
		}
		if err := sub.ScheduleRetry(attempt, u.now().Add(delay)); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("save retry schedule: %w", err)
		}
		u.log.Info().Str("subscription_id", sub.ID).Int("attempt", attempt).
			Dur("delay", delay).Msg("payment retry scheduled")
		return nil
	})
}

func (u *dunningUC) HandleRetry(ctx context.Context, subscriptionID string, attempt int) error {
	// A scheduled retry cannot be cancelled, so re-read current state before
	// charging: a manual payment between retries leaves the subscription
	// active and the fired job must become a no-op.
	sub, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
	}
	if sub.Status != model.SubscriptionStatusOverdue {
		metrics.IncPaymentRetry("skipped")
		u.log.Info().Str("subscription_id", sub.ID).Str("status", string(sub.Status)).
			Msg("retry fired but subscription is no longer overdue; skipping")
		return nil
	}

	ok, err := u.RetryPayment(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Nothing chargeable exists anymore; re-deriving is meaningless.
			u.log.Error().Err(err).Str("subscription_id", subscriptionID).Msg("retry dropped: no failed invoice")
			return nil
		}
		return err
	}
	if ok {
		metrics.IncPaymentRetry("succeeded")
		return u.ConfirmPayment(ctx, subscriptionID)
	}
	metrics.IncPaymentRetry("failed")
	return u.ScheduleRetry(ctx, subscriptionID, attempt+1)
}

func (u *dunningUC) RetryPayment(ctx context.Context, subscriptionID string) (bool, error) {
	inv, err := u.invoices.FindLatestFailedBySubscription(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return false, fmt.Errorf("find failed invoice for %s: %w", subscriptionID, err)
	}

	charge, err := u.gateway.CreateCharge(ctx, adapter.ChargeRequest{
		AmountMinor: inv.AmountMinor,
		Currency:    u.currency,
		Description: fmt.Sprintf("Retry payment for invoice %s", inv.Number),
		Metadata: map[string]string{
			"invoice_id":      inv.ID,
			"subscription_id": subscriptionID,
		},
	})
	if err != nil {
		// Transient gateway errors and hard declines are indistinguishable
		// here; both feed the same bounded retry loop.
		u.log.Warn().Err(err).Str("invoice", inv.Number).Msg("gateway charge errored")
		return false, nil
	}
	if charge.Status != adapter.ChargeStatusSucceeded {
		u.log.Info().Str("invoice", inv.Number).Str("charge_status", string(charge.Status)).
			Msg("gateway declined retry charge")
		return false, nil
	}

	paidAt := u.now()
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		if err := inv.MarkPaid(paidAt); err != nil {
			return err
		}
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		p := &model.Payment{
			ID:              uuid.NewString(),
			InvoiceID:       inv.ID,
			Method:          "card",
			AmountMinor:     inv.AmountMinor,
			Status:          model.PaymentStatusSucceeded,
			ReferenceNumber: charge.ID,
			CustomerName:    charge.CustomerName,
			PaymentDate:     paidAt,
			CreatedAt:       paidAt,
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	metrics.IncPayment(string(model.PaymentStatusSucceeded))
	return true, nil
}

func (u *dunningUC) ConfirmPayment(ctx context.Context, subscriptionID string) error {
	var notice *adapter.PaymentNotice

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		if err := sub.ConfirmPayment(u.resetRetries); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("confirm payment: %w", err)
		}
		if cust, cerr := u.customers.FindByID(ctx, tx, sub.CustomerID); cerr == nil {
			notice = &adapter.PaymentNotice{
				CustomerName:  cust.Name,
				CustomerEmail: cust.Email,
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if notice != nil {
		if err := u.notifier.SendPaymentSuccess(ctx, *notice); err != nil {
			u.log.Error().Err(err).Str("subscription_id", subscriptionID).Msg("payment-success notification failed")
		}
	}
	return nil
}

func (u *dunningUC) HandleSuccessfulPayment(ctx context.Context, subscriptionID string, amountMinor int64, methodCode string) error {
	var notice *adapter.PaymentNotice

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		inv, err := u.invoices.FindPendingBySubscription(ctx, tx, sub.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Redelivered webhook or an invoice already settled by the
				// retry loop. Ack and move on.
				u.log.Info().Str("subscription_id", sub.ID).Msg("checkout completed with no pending invoice; ignoring")
				return nil
			}
			return err
		}

		paidAt := u.now()
		if err := inv.MarkPaid(paidAt); err != nil {
			return err
		}
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}

		method := methodCode
		if method == "" {
			method = "card"
		}
		cust, cerr := u.customers.FindByID(ctx, tx, sub.CustomerID)
		custName := ""
		if cerr == nil {
			custName = cust.Name
		}
		p := &model.Payment{
			ID:              uuid.NewString(),
			InvoiceID:       inv.ID,
			Method:          method,
			AmountMinor:     amountMinor,
			Status:          model.PaymentStatusSucceeded,
			ReferenceNumber: inv.Number,
			CustomerName:    custName,
			PaymentDate:     paidAt,
			CreatedAt:       paidAt,
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		if err := sub.ConfirmPayment(u.resetRetries); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("reactivate subscription: %w", err)
		}

		if cerr == nil {
			notice = &adapter.PaymentNotice{
				CustomerName:  cust.Name,
				CustomerEmail: cust.Email,
				AmountMinor:   amountMinor,
				InvoiceNumber: inv.Number,
			}
		}
		metrics.IncPayment(string(model.PaymentStatusSucceeded))
		return nil
	})
	if err != nil {
		return err
	}

	if notice != nil {
		if err := u.notifier.SendPaymentSuccess(ctx, *notice); err != nil {
			u.log.Error().Err(err).Str("subscription_id", subscriptionID).Msg("payment-success notification failed")
		}
	}
	return nil
}
