package web

import (
	"encoding/json"
	"io"
	"net/http"

	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/metrics"
)

const (
	signatureHeader = "X-Signature"
	maxWebhookBody  = 1 << 20 // 1 MiB
)

// handlePaymentWebhook authenticates and dispatches gateway events.
//
// The contract with the gateway is deliberately asymmetric: an unverifiable
// payload is rejected with 400 before any business logic runs, but once the
// signature checks out the endpoint always acks with 200. Gateways retry
// non-2xx responses, and a redelivered event that already failed downstream
// would fail the same way again; the idempotency guards in the use cases make
// the ack safe.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	event, err := s.gateway.VerifyEvent(payload, r.Header.Get(signatureHeader))
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook rejected")
		metrics.IncWebhookEvent("unknown", "rejected")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch event.Kind {
	case adapter.EventCheckoutCompleted:
		err = s.dunning.HandleSuccessfulPayment(ctx, event.SubscriptionID, event.AmountMinor, event.PaymentMethod)
	case adapter.EventPaymentFailed:
		err = s.dunning.HandleFailedPayment(ctx, event.SubscriptionID)
	default:
		s.log.Warn().Str("kind", string(event.Kind)).Str("subscription_id", event.SubscriptionID).
			Msg("unhandled webhook kind; acked")
		metrics.IncWebhookEvent(string(event.Kind), "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err != nil {
		// Verified event, downstream failure: ack anyway, a gateway retry
		// would not help.
		s.log.Error().Err(err).Str("kind", string(event.Kind)).Str("subscription_id", event.SubscriptionID).
			Msg("webhook processing failed")
		metrics.IncWebhookEvent(string(event.Kind), "error")
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}

	metrics.IncWebhookEvent(string(event.Kind), "processed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
