//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.SubscriptionPlan

	SaveFunc     func(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error)
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
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
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
	var out []*model.SubscriptionPlan
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

	SaveFunc              func(ctx context.Context, tx repository.Tx, s *model.CustomerSubscription) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, id string) (*model.CustomerSubscription, error)
	FindDueForBillingFunc func(ctx context.Context, tx repository.Tx, day time.Time) ([]*model.CustomerSubscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.CustomerSubscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.CustomerSubscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CustomerSubscription, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
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
	if r.FindDueForBillingFunc != nil {
		return r.FindDueForBillingFunc(ctx, tx, day)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	y, m, d := day.Date()
	var out []*model.CustomerSubscription
	for _, s := range r.data {
		if s.Status != model.SubscriptionStatusActive || s.NextBillingDate == nil {
			continue
		}
		ny, nm, nd := s.NextBillingDate.Date()
		if ny == y && nm == m && nd == d {
			cp := *s
			out = append(out, &cp)
		}
	}
	// Deterministic order for assertions.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.data {
		out[s.Status]++
	}
	return out, nil
}

// ---- Mock InvoiceRepository ----

type MockInvoiceRepo struct {
	mu   sync.Mutex
	data map[string]*model.Invoice

	SaveFunc func(ctx context.Context, tx repository.Tx, inv *model.Invoice) error
}

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{data: map[string]*model.Invoice{}}
}

func (r *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, inv)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.data[inv.ID] = &cp
	return nil
}

func (r *MockInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *MockInvoiceRepo) FindPendingBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.Invoice, error) {
	return r.findByStatus(subscriptionID, model.InvoiceStatusPending)
}

func (r *MockInvoiceRepo) FindLatestFailedBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.Invoice, error) {
	return r.findByStatus(subscriptionID, model.InvoiceStatusFailed)
}

func (r *MockInvoiceRepo) findByStatus(subscriptionID string, status model.InvoiceStatus) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Invoice
	for _, inv := range r.data {
		if inv.SubscriptionID != subscriptionID || inv.Status != status {
			continue
		}
		if latest == nil || inv.PaymentDueDate.After(latest.PaymentDueDate) {
			latest = inv
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// All returns a snapshot of every stored invoice.
func (r *MockInvoiceRepo) All() []*model.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range r.data {
		cp := *inv
		out = append(out, &cp)
	}
	return out
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data []*model.Payment

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data = append(r.data, &cp)
	return nil
}

func (r *MockPaymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All returns every recorded payment.
func (r *MockPaymentRepo) All() []*model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Payment, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// ---- Mock CustomerRepository ----

type MockCustomerRepo struct {
	mu   sync.Mutex
	data map[string]*model.Customer
}

var _ repository.CustomerRepository = (*MockCustomerRepo)(nil)

func NewMockCustomerRepo() *MockCustomerRepo {
	return &MockCustomerRepo{data: map[string]*model.Customer{}}
}

func (r *MockCustomerRepo) Put(c *model.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.data[c.ID] = &cp
}

func (r *MockCustomerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ---- Mock SettingsRepository ----

type MockSettingsRepo struct {
	mu   sync.Mutex
	data map[string]string
}

var _ repository.SettingsRepository = (*MockSettingsRepo)(nil)

func NewMockSettingsRepo() *MockSettingsRepo {
	return &MockSettingsRepo{data: map[string]string{}}
}

func (r *MockSettingsRepo) Set(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
}

func (r *MockSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (r *MockSettingsRepo) GetInt(ctx context.Context, key string, def int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// =============================
// Adapters
// =============================

// ---- Mock JobQueue ----

type enqueuedJob struct {
	Job   adapter.Job
	Delay time.Duration
}

type MockJobQueue struct {
	mu   sync.Mutex
	jobs []enqueuedJob

	EnqueueFunc func(ctx context.Context, job adapter.Job, delay time.Duration) error
}

var _ adapter.JobQueue = (*MockJobQueue)(nil)

func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{}
}

func (q *MockJobQueue) Enqueue(ctx context.Context, job adapter.Job, delay time.Duration) error {
	if q.EnqueueFunc != nil {
		return q.EnqueueFunc(ctx, job, delay)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, enqueuedJob{Job: job, Delay: delay})
	return nil
}

func (q *MockJobQueue) Enqueued() []enqueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]enqueuedJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu       sync.Mutex
	invoices []adapter.InvoiceNotice
	success  []adapter.PaymentNotice
	failure  []adapter.PaymentNotice

	SendInvoiceGeneratedFunc func(ctx context.Context, n adapter.InvoiceNotice) error
	SendPaymentFailureFunc   func(ctx context.Context, n adapter.PaymentNotice) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendInvoiceGenerated(ctx context.Context, n adapter.InvoiceNotice) error {
	if m.SendInvoiceGeneratedFunc != nil {
		return m.SendInvoiceGeneratedFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, n)
	return nil
}

func (m *MockNotifier) SendPaymentSuccess(ctx context.Context, n adapter.PaymentNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.success = append(m.success, n)
	return nil
}

func (m *MockNotifier) SendPaymentFailure(ctx context.Context, n adapter.PaymentNotice) error {
	if m.SendPaymentFailureFunc != nil {
		return m.SendPaymentFailureFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = append(m.failure, n)
	return nil
}

func (m *MockNotifier) InvoiceNotices() []adapter.InvoiceNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.InvoiceNotice, len(m.invoices))
	copy(out, m.invoices)
	return out
}

func (m *MockNotifier) FailureNotices() []adapter.PaymentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.PaymentNotice, len(m.failure))
	copy(out, m.failure)
	return out
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu      sync.Mutex
	charges []adapter.ChargeRequest

	CreateChargeFunc func(ctx context.Context, req adapter.ChargeRequest) (*adapter.Charge, error)
	VerifyEventFunc  func(payload []byte, sigHeader string) (*adapter.WebhookEvent, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mockpay" }

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, req adapter.ChargeRequest) (*adapter.Charge, error) {
	m.mu.Lock()
	m.charges = append(m.charges, req)
	m.mu.Unlock()
	if m.CreateChargeFunc != nil {
		return m.CreateChargeFunc(ctx, req)
	}
	return &adapter.Charge{ID: "ch-" + uuid.NewString(), Status: adapter.ChargeStatusSucceeded}, nil
}

func (m *MockPaymentGateway) VerifyEvent(payload []byte, sigHeader string) (*adapter.WebhookEvent, error) {
	if m.VerifyEventFunc != nil {
		return m.VerifyEventFunc(payload, sigHeader)
	}
	return nil, domain.ErrInvalidArgument
}

func (m *MockPaymentGateway) Charges() []adapter.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.ChargeRequest, len(m.charges))
	copy(out, m.charges)
	return out
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately with NoTX unless a test overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
