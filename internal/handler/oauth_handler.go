// internal/handler/oauth_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"partner-payouts/internal/domain"
	"partner-payouts/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OAuthFlow interface {
	Start(ctx context.Context, provider, partnerID string) (string, error)
	Callback(ctx context.Context, provider, state, code string) (string, error)
}

type OAuthHandler struct {
	flow   OAuthFlow
	appURL string
	logger *zap.Logger
}

func NewOAuthHandler(flow OAuthFlow, appURL string, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{flow: flow, appURL: appURL, logger: logger}
}

// Start serves GET /api/v1/oauth/{provider}/start behind RequirePartner.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		response.APIError(w, r, domain.NewUnauthorized("Missing session."))
		return
	}
	provider := chi.URLParam(r, "provider")

	target, err := h.flow.Start(r.Context(), provider, claims.PartnerID)
	if errors.Is(err, domain.ErrUnknownProvider) {
		response.APIError(w, r, domain.NewNotFound("Unknown provider."))
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		response.APIError(w, r, domain.NewNotFound("Partner not found."))
		return
	}
	if err != nil {
		h.logger.Error("failed to start oauth flow",
			zap.String("provider", provider),
			zap.String("partner_id", claims.PartnerID),
			zap.Error(err))
		response.APIError(w, r, domain.NewInternal("Failed to start connection."))
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Callback serves GET /api/v1/oauth/{provider}/callback and sends the partner
// back to the payout settings page with the outcome.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	if q.Get("error") != "" {
		h.redirect(w, r, provider, "denied")
		return
	}

	partnerID, err := h.flow.Callback(r.Context(), provider, q.Get("state"), q.Get("code"))
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		http.NotFound(w, r)
		return
	case errors.Is(err, domain.ErrInvalidOAuthState):
		h.redirect(w, r, provider, "invalid_state")
		return
	case errors.Is(err, domain.ErrInvalidRequest):
		h.redirect(w, r, provider, "not_verified")
		return
	case err != nil:
		h.logger.Error("oauth callback failed",
			zap.String("provider", provider),
			zap.String("partner_id", partnerID),
			zap.Error(err))
		h.redirect(w, r, provider, "failed")
		return
	}

	h.redirect(w, r, provider, "")
}

func (h *OAuthHandler) redirect(w http.ResponseWriter, r *http.Request, provider, failure string) {
	q := url.Values{}
	if failure == "" {
		q.Set("connected", provider)
	} else {
		q.Set("error", failure)
		q.Set("provider", provider)
	}
	http.Redirect(w, r, h.appURL+"/settings/payouts?"+q.Encode(), http.StatusFound)
}
