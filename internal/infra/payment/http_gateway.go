package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

// Ensure implementation satisfies the port
var _ adapter.PaymentGateway = (*HTTPGateway)(nil)

// HTTPGateway talks to a card-on-file payment provider over its JSON API and
// authenticates incoming webhooks with an HMAC-SHA256 signature.
type HTTPGateway struct {
	baseURL       string
	secretKey     string
	webhookSecret []byte
	client        *http.Client
}

func NewHTTPGateway(cfg *config.GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL:       cfg.BaseURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: []byte(cfg.WebhookSecret),
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *HTTPGateway) Name() string { return "http-gateway" }

type chargeRequestBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type chargeResponseBody struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	CustomerName string `json:"customer_name"`
	Error        string `json:"error,omitempty"`
}

func (g *HTTPGateway) CreateCharge(ctx context.Context, req adapter.ChargeRequest) (*adapter.Charge, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: charge amount must be positive", domain.ErrInvalidArgument)
	}
	body, err := json.Marshal(chargeRequestBody{
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	var out chargeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gateway response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d: %s", domain.ErrOperationFailed, resp.StatusCode, out.Error)
	}
	// 4xx with a decoded body is a decline, not a transport failure.
	charge := &adapter.Charge{
		ID:           out.ID,
		Status:       adapter.ChargeStatus(out.Status),
		CustomerName: out.CustomerName,
	}
	if charge.Status == "" {
		charge.Status = adapter.ChargeStatusFailed
	}
	return charge, nil
}

// webhookBody is the provider's wire shape for pushed events.
type webhookBody struct {
	Kind           string `json:"kind"`
	SubscriptionID string `json:"subscription_id"`
	AmountMinor    int64  `json:"amount_minor"`
	PaymentMethod  string `json:"payment_method"`
}

// VerifyEvent checks the hex HMAC-SHA256 signature over the raw payload and
// decodes the event. It fails closed on any mismatch or malformed input.
func (g *HTTPGateway) VerifyEvent(payload []byte, signatureHeader string) (*adapter.WebhookEvent, error) {
	if len(g.webhookSecret) == 0 {
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidArgument)
	}
	mac := hmac.New(sha256.New, g.webhookSecret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signatureHeader)
	if err != nil || !hmac.Equal(expected, got) {
		return nil, fmt.Errorf("%w: webhook signature mismatch", domain.ErrInvalidArgument)
	}

	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: webhook payload: %v", domain.ErrInvalidArgument, err)
	}
	if body.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: webhook payload missing subscription_id", domain.ErrInvalidArgument)
	}
	return &adapter.WebhookEvent{
		Kind:           adapter.EventKind(body.Kind),
		SubscriptionID: body.SubscriptionID,
		AmountMinor:    body.AmountMinor,
		PaymentMethod:  body.PaymentMethod,
	}, nil
}

// SignPayload produces the signature a provider would attach; used by tests
// and the dev-mode event injector.
func SignPayload(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
