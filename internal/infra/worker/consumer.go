package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
	redisq "subscription-billing/internal/infra/redis"
	"subscription-billing/internal/usecase"
)

// Consumer polls the delayed queues and dispatches due jobs into the pool.
// A per-subscription lock keeps two workers from processing the same
// subscription at once; a held lock just defers the job to the next poll.
type Consumer struct {
	queue    *redisq.DelayedQueue
	locker   redisq.Locker
	pool     *Pool
	billing  usecase.BillingUseCase
	dunning  usecase.DunningUseCase
	interval time.Duration
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewConsumer(
	queue *redisq.DelayedQueue,
	locker redisq.Locker,
	pool *Pool,
	billing usecase.BillingUseCase,
	dunning usecase.DunningUseCase,
	logger *zerolog.Logger,
) *Consumer {
	l := logger.With().Str("component", "JobConsumer").Logger()
	return &Consumer{
		queue:    queue,
		locker:   locker,
		pool:     pool,
		billing:  billing,
		dunning:  dunning,
		interval: time.Second,
		lockTTL:  2 * time.Minute,
		log:      &l,
	}
}

// Run polls until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info().Msg("job consumer started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("job consumer stopping")
			return ctx.Err()
		case <-ticker.C:
			c.drain(ctx, adapter.QueueBilling)
			c.drain(ctx, adapter.QueuePaymentRetry)
		}
	}
}

// drain pops every currently-due job from one queue and dispatches it.
func (c *Consumer) drain(ctx context.Context, queue string) {
	for {
		job, err := c.queue.DequeueDue(ctx, queue, time.Now())
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				c.log.Error().Err(err).Str("queue", queue).Msg("dequeue failed")
			}
			return
		}
		if err := c.dispatch(ctx, *job); err != nil {
			// Pool saturated: push the job back so the next poll retries it.
			if reErr := c.queue.Enqueue(ctx, *job, 0); reErr != nil {
				c.log.Error().Err(reErr).Str("job_id", job.ID).Msg("re-enqueue after saturation failed; job lost")
			}
			return
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, job adapter.Job) error {
	return c.pool.Submit(func(ctx context.Context) error {
		lockKey := "lock:subscription:" + job.SubscriptionID
		token, err := c.locker.TryLock(ctx, lockKey, c.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				// Another worker owns this subscription right now; the job
				// goes back on the queue for the next poll.
				return c.queue.Enqueue(ctx, job, time.Second)
			}
			return err
		}
		defer func() {
			if err := c.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				c.log.Warn().Err(err).Str("key", lockKey).Msg("unlock failed; lock will expire by TTL")
			}
		}()

		return c.handle(ctx, job)
	})
}

func (c *Consumer) handle(ctx context.Context, job adapter.Job) error {
	var err error
	switch job.Kind {
	case adapter.JobGenerateInvoice:
		err = c.billing.CreateInvoiceForSubscription(ctx, job.SubscriptionID)
	case adapter.JobPaymentRetry:
		err = c.dunning.HandleRetry(ctx, job.SubscriptionID, job.Attempt)
	default:
		c.log.Warn().Str("kind", string(job.Kind)).Str("job_id", job.ID).Msg("unknown job kind; dropping")
		return nil
	}
	if err != nil {
		// Missing parent entities are fatal for the job: re-deriving is not
		// meaningful, so log and drop instead of retrying blindly.
		if errors.Is(err, domain.ErrNotFound) {
			c.log.Error().Err(err).Str("job_id", job.ID).Str("subscription_id", job.SubscriptionID).
				Msg("job references missing entity; dropped")
			return nil
		}
		return err
	}
	return nil
}
