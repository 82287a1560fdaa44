package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway approves every charge and skips signature checks. Dev mode only.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (NoopGateway) Name() string { return "noop" }

func (NoopGateway) CreateCharge(_ context.Context, req adapter.ChargeRequest) (*adapter.Charge, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: charge amount must be positive", domain.ErrInvalidArgument)
	}
	return &adapter.Charge{
		ID:     "noop-" + uuid.NewString(),
		Status: adapter.ChargeStatusSucceeded,
	}, nil
}

func (NoopGateway) VerifyEvent(payload []byte, _ string) (*adapter.WebhookEvent, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: webhook payload: %v", domain.ErrInvalidArgument, err)
	}
	return &adapter.WebhookEvent{
		Kind:           adapter.EventKind(body.Kind),
		SubscriptionID: body.SubscriptionID,
		AmountMinor:    body.AmountMinor,
		PaymentMethod:  body.PaymentMethod,
	}, nil
}
