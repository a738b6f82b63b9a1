// internal/handler/paypal_webhook_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/provider/paypal"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookVerifier interface {
	VerifyWebhook(ctx context.Context, h paypal.WebhookHeaders, payload []byte) (bool, error)
}

type PayoutConfirmer interface {
	ConfirmPayout(ctx context.Context, vendorRef string, succeeded bool, reason string) (int64, error)
}

type PayPalWebhookHandler struct {
	verifier  WebhookVerifier
	confirmer PayoutConfirmer
	logger    *zap.Logger
}

func NewPayPalWebhookHandler(verifier WebhookVerifier, confirmer PayoutConfirmer, logger *zap.Logger) *PayPalWebhookHandler {
	return &PayPalWebhookHandler{verifier: verifier, confirmer: confirmer, logger: logger}
}

type paypalEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
			BatchStatus   string `json:"batch_status"`
		} `json:"batch_header"`
	} `json:"resource"`
}

// HandleWebhook verifies the signature and settles batch outcomes. Item level
// events are acknowledged without action.
func (h *PayPalWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	valid, err := h.verifier.VerifyWebhook(r.Context(), paypal.WebhookHeaders{
		AuthAlgo:         r.Header.Get("PAYPAL-AUTH-ALGO"),
		CertURL:          r.Header.Get("PAYPAL-CERT-URL"),
		TransmissionID:   r.Header.Get("PAYPAL-TRANSMISSION-ID"),
		TransmissionSig:  r.Header.Get("PAYPAL-TRANSMISSION-SIG"),
		TransmissionTime: r.Header.Get("PAYPAL-TRANSMISSION-TIME"),
	}, payload)
	if err != nil {
		h.logger.Error("paypal webhook verification errored", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !valid {
		h.logger.Warn("paypal webhook signature rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var ev paypalEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var succeeded bool
	switch ev.EventType {
	case "PAYMENT.PAYOUTSBATCH.SUCCESS":
		succeeded = true
	case "PAYMENT.PAYOUTSBATCH.DENIED":
		succeeded = false
	default:
		h.logger.Debug("ignoring paypal event",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.EventType))
		w.WriteHeader(http.StatusOK)
		return
	}

	batchID := ev.Resource.BatchHeader.PayoutBatchID
	if batchID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	_, err = h.confirmer.ConfirmPayout(r.Context(), batchID, succeeded, ev.Resource.BatchHeader.BatchStatus)
	if err != nil && !errors.Is(err, domain.ErrPayoutNotSent) {
		h.logger.Error("failed to confirm paypal batch",
			zap.String("batch_id", batchID),
			zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err != nil {
		h.logger.Info("paypal batch already settled or unknown", zap.String("batch_id", batchID))
	}

	w.WriteHeader(http.StatusOK)
}
