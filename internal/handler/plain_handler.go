// internal/handler/plain_handler.go
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/usecase"
	"partner-payouts/pkg/response"

	"go.uber.org/zap"
)

const plainSecretHeader = "X-Plain-Webhook-Secret"

type CardBuilder interface {
	CustomerCards(ctx context.Context, req *usecase.CustomerCardsRequest) (*usecase.CustomerCardsResponse, error)
}

// PlainHandler answers Plain customer-card requests. Errors are bare text.
type PlainHandler struct {
	cards  CardBuilder
	secret string
	logger *zap.Logger
}

func NewPlainHandler(cards CardBuilder, secret string, logger *zap.Logger) *PlainHandler {
	return &PlainHandler{cards: cards, secret: secret, logger: logger}
}

func (h *PlainHandler) CustomerCards(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(plainSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req usecase.CustomerCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	resp, err := h.cards.CustomerCards(r.Context(), &req)
	if errors.Is(err, domain.ErrInvalidRequest) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("failed to build customer cards", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response.Raw(w, r, http.StatusOK, resp)
}
