package adapter

import "context"

type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusFailed    ChargeStatus = "failed"
	ChargeStatusPending   ChargeStatus = "pending"
)

// ChargeRequest asks the gateway to charge a customer's stored payment method.
type ChargeRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Charge is the gateway's answer to a ChargeRequest.
type Charge struct {
	ID           string // gateway charge/reference id
	Status       ChargeStatus
	CustomerName string
}

type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout_completed"
	EventPaymentFailed     EventKind = "payment_failed"
)

// WebhookEvent is a verified event pushed by the gateway.
type WebhookEvent struct {
	Kind           EventKind
	SubscriptionID string
	AmountMinor    int64
	PaymentMethod  string
}

// PaymentGateway is the hex port for the payment provider.
type PaymentGateway interface {
	Name() string
	// CreateCharge attempts a charge in minor currency units. A declined
	// charge comes back as a non-succeeded status, not an error; errors mean
	// the gateway itself could not be reached or answered garbage.
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// VerifyEvent authenticates a raw webhook payload against its signature
	// header and decodes it. It fails closed: any signature mismatch is an
	// error and no event is returned.
	VerifyEvent(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
