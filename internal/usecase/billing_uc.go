package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/infra/metrics"
)

// Compile-time check
var _ BillingUseCase = (*billingUC)(nil)

// BillingUseCase owns the recurring-billing sweep and invoice generation.
type BillingUseCase interface {
	// ScheduleInvoiceGeneration enqueues one generate-invoice job for every
	// active subscription whose next billing date is today. It returns the
	// number of jobs enqueued. Invoice creation itself happens asynchronously
	// so a failure mid-sweep never double-charges already-enqueued
	// subscriptions.
	ScheduleInvoiceGeneration(ctx context.Context, today time.Time) (int, error)
	// CreateInvoiceForSubscription is the queue-consumer side: it creates the
	// pending invoice for one subscription and advances its billing date.
	CreateInvoiceForSubscription(ctx context.Context, subscriptionID string) error
}

type billingUC struct {
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	invoices  repository.InvoiceRepository
	customers repository.CustomerRepository
	queue     adapter.JobQueue
	notifier  adapter.Notifier
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewBillingUseCase(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	queue adapter.JobQueue,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *billingUC {
	l := logger.With().Str("component", "BillingUC").Logger()
	return &billingUC{
		subs:      subs,
		plans:     plans,
		invoices:  invoices,
		customers: customers,
		queue:     queue,
		notifier:  notifier,
		tm:        tm,
		log:       &l,
	}
}

func (u *billingUC) ScheduleInvoiceGeneration(ctx context.Context, today time.Time) (int, error) {
	due, err := u.subs.FindDueForBilling(ctx, repository.NoTX, today)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("find due subscriptions: %w", err)
	}

	enqueued := 0
	for _, sub := range due {
		job := adapter.Job{
			ID:             uuid.NewString(),
			Queue:          adapter.QueueBilling,
			Kind:           adapter.JobGenerateInvoice,
			SubscriptionID: sub.ID,
		}
		if err := u.queue.Enqueue(ctx, job, 0); err != nil {
			// Jobs already enqueued stay enqueued; the next sweep picks up
			// the remainder because their billing dates have not advanced.
			u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("enqueue generate-invoice job failed")
			return enqueued, err
		}
		enqueued++
	}
	metrics.AddSweepEnqueued(enqueued)
	u.log.Info().Int("enqueued", enqueued).Time("day", today).Msg("billing sweep complete")
	return enqueued, nil
}

func (u *billingUC) CreateInvoiceForSubscription(ctx context.Context, subscriptionID string) error {
	var notice *adapter.InvoiceNotice
	created := false

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}

		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		plan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
		if err != nil {
			return fmt.Errorf("load plan %s: %w", sub.PlanID, err)
		}
		if sub.NextBillingDate == nil {
			return fmt.Errorf("subscription %s has no billing date: %w", sub.ID, domain.ErrInvalidArgument)
		}

		// Redelivery guard: the queue is at-least-once, so a second delivery
		// of the same job must not create a second invoice.
		if existing, err := u.invoices.FindPendingBySubscription(ctx, tx, sub.ID); err == nil && existing != nil {
			u.log.Warn().Str("subscription_id", sub.ID).Str("invoice", existing.Number).
				Msg("pending invoice already exists; skipping duplicate generation")
			metrics.IncInvoiceGenerated("duplicate")
			return nil
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		// Anchor on the stored next billing date, never on "today", so the
		// cadence stays fixed even when the job runs late.
		periodStart := *sub.NextBillingDate
		dueDate := model.NextBillingDate(periodStart, plan.BillingCycleDays)

		inv, err := model.NewInvoice(uuid.NewString(), newInvoiceNumber(), sub.ID, plan.PriceMinor, dueDate)
		if err != nil {
			return err
		}
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if err := sub.AdvanceBillingDate(plan.BillingCycleDays); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("advance billing date: %w", err)
		}
		created = true

		if cust, err := u.customers.FindByID(ctx, tx, sub.CustomerID); err == nil {
			notice = &adapter.InvoiceNotice{
				CustomerName:  cust.Name,
				CustomerEmail: cust.Email,
				PlanName:      plan.Name,
				AmountMinor:   inv.AmountMinor,
				DueDate:       inv.PaymentDueDate,
				PeriodStart:   periodStart,
				PeriodEnd:     dueDate,
				InvoiceNumber: inv.Number,
			}
		} else {
			u.log.Warn().Err(err).Str("customer_id", sub.CustomerID).Msg("customer lookup for notification failed")
		}
		return nil
	})
	if err != nil {
		metrics.IncInvoiceGenerated("failed")
		return err
	}

	if !created {
		return nil
	}

	// Fire-and-forget: a notification failure never rolls back the invoice.
	if notice != nil {
		if err := u.notifier.SendInvoiceGenerated(ctx, *notice); err != nil {
			u.log.Error().Err(err).Str("invoice", notice.InvoiceNumber).Msg("invoice notification failed")
		}
	}
	metrics.IncInvoiceGenerated("created")
	return nil
}

// newInvoiceNumber returns a time-sortable customer-facing invoice number.
func newInvoiceNumber() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return "INV-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
