package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/usecase"
)

// Server exposes the webhook endpoint, a small admin API, and operational
// endpoints. It is intentionally thin: every business decision lives in the
// use cases.
type Server struct {
	gateway    adapter.PaymentGateway
	dunning    usecase.DunningUseCase
	planChange usecase.PlanChangeUseCase
	plans      repository.PlanRepository
	subs       repository.SubscriptionRepository
	log        *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(
	gateway adapter.PaymentGateway,
	dunning usecase.DunningUseCase,
	planChange usecase.PlanChangeUseCase,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		gateway:    gateway,
		dunning:    dunning,
		planChange: planChange,
		plans:      plans,
		subs:       subs,
		log:        &l,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/payment", s.handlePaymentWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.handlePlansList)
		r.Post("/plans", s.handlePlanCreate)
		r.Post("/plans/{id}/archive", s.handlePlanArchive)
		r.Get("/subscriptions/{id}", s.handleSubscriptionGet)
		r.Put("/subscriptions/{id}/plan", s.handlePlanChange)
	})

	return r
}

// Start begins serving on the given port. It blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start(port int) error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
