//go:build !integration

package web_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock PaymentGateway ----

type MockGateway struct {
	VerifyEventFunc func(payload []byte, sigHeader string) (*adapter.WebhookEvent, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mockpay" }

func (m *MockGateway) CreateCharge(ctx context.Context, req adapter.ChargeRequest) (*adapter.Charge, error) {
	return &adapter.Charge{ID: "ch-1", Status: adapter.ChargeStatusSucceeded}, nil
}

func (m *MockGateway) VerifyEvent(payload []byte, sigHeader string) (*adapter.WebhookEvent, error) {
	if m.VerifyEventFunc != nil {
		return m.VerifyEventFunc(payload, sigHeader)
	}
	return nil, domain.ErrInvalidArgument
}

// ---- Mock DunningUseCase ----

type MockDunningUC struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string

	HandleSuccessfulPaymentFunc func(ctx context.Context, subID string, amountMinor int64, methodCode string) error
	HandleFailedPaymentFunc     func(ctx context.Context, subID string) error
}

var _ usecase.DunningUseCase = (*MockDunningUC)(nil)

func (m *MockDunningUC) HandleFailedPayment(ctx context.Context, subID string) error {
	m.mu.Lock()
	m.failed = append(m.failed, subID)
	m.mu.Unlock()
	if m.HandleFailedPaymentFunc != nil {
		return m.HandleFailedPaymentFunc(ctx, subID)
	}
	return nil
}

func (m *MockDunningUC) ScheduleRetry(ctx context.Context, subID string, attempt int) error { return nil }
func (m *MockDunningUC) HandleRetry(ctx context.Context, subID string, attempt int) error   { return nil }
func (m *MockDunningUC) RetryPayment(ctx context.Context, subID string) (bool, error) {
	return false, nil
}
func (m *MockDunningUC) ConfirmPayment(ctx context.Context, subID string) error { return nil }

func (m *MockDunningUC) HandleSuccessfulPayment(ctx context.Context, subID string, amountMinor int64, methodCode string) error {
	m.mu.Lock()
	m.succeeded = append(m.succeeded, subID)
	m.mu.Unlock()
	if m.HandleSuccessfulPaymentFunc != nil {
		return m.HandleSuccessfulPaymentFunc(ctx, subID, amountMinor, methodCode)
	}
	return nil
}

func (m *MockDunningUC) Succeeded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.succeeded))
	copy(out, m.succeeded)
	return out
}

func (m *MockDunningUC) Failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.failed))
	copy(out, m.failed)
	return out
}

// ---- Mock PlanChangeUseCase ----

type MockPlanChangeUC struct {
	ChangePlanFunc func(ctx context.Context, subID, newPlanID string) (*model.CustomerSubscription, error)
}

var _ usecase.PlanChangeUseCase = (*MockPlanChangeUC)(nil)

func (m *MockPlanChangeUC) ChangePlan(ctx context.Context, subID, newPlanID string) (*model.CustomerSubscription, error) {
	if m.ChangePlanFunc != nil {
		return m.ChangePlanFunc(ctx, subID, newPlanID)
	}
	return nil, domain.ErrNotFound
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.SubscriptionPlan

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.SubscriptionPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.PlanStatus) ([]*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.SubscriptionPlan{}
	for _, p := range r.data {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.CustomerSubscription
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.CustomerSubscription{}}
}

func (r *MockSubscriptionRepo) Put(s *model.CustomerSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.CustomerSubscription) error {
	r.Put(s)
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CustomerSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindDueForBilling(ctx context.Context, tx repository.Tx, day time.Time) ([]*model.CustomerSubscription, error) {
	return nil, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	return map[model.SubscriptionStatus]int{}, nil
}
