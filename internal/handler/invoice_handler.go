// internal/handler/invoice_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"partner-payouts/internal/domain"
	"partner-payouts/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type InvoiceService interface {
	GetForWorkspace(ctx context.Context, workspaceID, invoiceID string) (*domain.InvoiceDetail, error)
}

type InvoiceHandler struct {
	invoices InvoiceService
	logger   *zap.Logger
}

func NewInvoiceHandler(invoices InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, logger: logger}
}

// GetInvoice serves GET /api/v1/invoices/{invoiceId} behind RequireWorkspace.
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		response.APIError(w, r, domain.NewUnauthorized("Missing session."))
		return
	}
	invoiceID := chi.URLParam(r, "invoiceId")

	detail, err := h.invoices.GetForWorkspace(r.Context(), claims.WorkspaceID, invoiceID)
	if errors.Is(err, domain.ErrNotFound) {
		response.APIError(w, r, domain.NewNotFound("Invoice not found."))
		return
	}
	if err != nil {
		h.logger.Error("failed to load invoice",
			zap.String("invoice_id", invoiceID),
			zap.String("workspace_id", claims.WorkspaceID),
			zap.Error(err))
		response.APIError(w, r, domain.NewInternal("Failed to load invoice."))
		return
	}

	response.Raw(w, r, http.StatusOK, detail)
}
