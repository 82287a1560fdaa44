package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*HTTPNotifier)(nil)

// HTTPNotifier posts billing notices to the notification service, which owns
// templating and actual mail delivery.
type HTTPNotifier struct {
	url    string
	client *http.Client
}

func NewHTTPNotifier(cfg *config.NotifierConfig) *HTTPNotifier {
	return &HTTPNotifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type noticeEnvelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

func (n *HTTPNotifier) send(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(noticeEnvelope{Kind: kind, Payload: payload})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: notification service returned %d", domain.ErrOperationFailed, resp.StatusCode)
	}
	return nil
}

func (n *HTTPNotifier) SendInvoiceGenerated(ctx context.Context, notice adapter.InvoiceNotice) error {
	return n.send(ctx, "invoice_generated", notice)
}

func (n *HTTPNotifier) SendPaymentSuccess(ctx context.Context, notice adapter.PaymentNotice) error {
	return n.send(ctx, "payment_success", notice)
}

func (n *HTTPNotifier) SendPaymentFailure(ctx context.Context, notice adapter.PaymentNotice) error {
	return n.send(ctx, "payment_failure", notice)
}
