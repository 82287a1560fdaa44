package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"subscription-billing/internal/usecase"
)

// BillingSweeper runs the daily billing sweep on a cron schedule (midnight by
// default). The sweep only enqueues jobs; invoice creation happens in the
// worker pool, so a slow sweep never blocks the scheduler goroutine for long.
type BillingSweeper struct {
	cron    *cron.Cron
	spec    string
	billing usecase.BillingUseCase
	log     *zerolog.Logger
}

func NewBillingSweeper(spec string, billing usecase.BillingUseCase, logger *zerolog.Logger) *BillingSweeper {
	l := logger.With().Str("component", "BillingSweeper").Logger()
	return &BillingSweeper{
		cron:    cron.New(),
		spec:    spec,
		billing: billing,
		log:     &l,
	}
}

func (s *BillingSweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.spec).Msg("billing sweeper started")
	return nil
}

// RunOnce executes one sweep for the current day. Exposed so operators can
// trigger an out-of-band sweep after downtime.
func (s *BillingSweeper) RunOnce(ctx context.Context) {
	started := time.Now()
	n, err := s.billing.ScheduleInvoiceGeneration(ctx, started)
	if err != nil {
		s.log.Error().Err(err).Int("enqueued", n).Msg("billing sweep failed")
		return
	}
	s.log.Info().Int("enqueued", n).Dur("took", time.Since(started)).Msg("billing sweep complete")
}

func (s *BillingSweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info().Msg("billing sweeper stopped")
}
