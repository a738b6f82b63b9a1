// internal/handler/cron_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/usecase"
	"partner-payouts/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Settler interface {
	Settle(ctx context.Context, req usecase.SettleRequest) (*usecase.SettleResult, error)
	SettleInvoice(ctx context.Context, invoiceID string) ([]*usecase.SettleResult, error)
	SettleAll(ctx context.Context) ([]*usecase.SettleResult, error)
}

// CronHandler serves internal jobs authenticated with the cron secret.
type CronHandler struct {
	settler Settler
	cleanup CleanupService
	logger  *zap.Logger
}

func NewCronHandler(settler Settler, cleanup CleanupService, logger *zap.Logger) *CronHandler {
	return &CronHandler{settler: settler, cleanup: cleanup, logger: logger}
}

// RunPayouts settles one partner, one invoice, or everything pending,
// depending on which ids the body carries.
func (h *CronHandler) RunPayouts(w http.ResponseWriter, r *http.Request) {
	var req usecase.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Method != nil && !req.Method.Valid() {
		response.Error(w, r, http.StatusBadRequest, "unsupported payout method")
		return
	}

	if req.PartnerID != "" {
		res, err := h.settler.Settle(r.Context(), req)
		if err != nil {
			h.logger.Error("partner settlement failed",
				zap.String("partner_id", req.PartnerID),
				zap.Error(err))
			response.Error(w, r, settleStatus(err), err.Error())
			return
		}
		response.JSON(w, r, http.StatusOK, []*usecase.SettleResult{res})
		return
	}

	var (
		results []*usecase.SettleResult
		err     error
	)
	if req.InvoiceID != nil && *req.InvoiceID != "" {
		results, err = h.settler.SettleInvoice(r.Context(), *req.InvoiceID)
	} else {
		results, err = h.settler.SettleAll(r.Context())
	}

	// A nil result set means the batch never started. Otherwise the error
	// covers only some partners and the rest are reported alongside it.
	if err != nil && results == nil {
		h.logger.Error("payout batch failed", zap.Error(err))
		response.Error(w, r, settleStatus(err), err.Error())
		return
	}
	if err != nil {
		h.logger.Error("payout batch finished with errors",
			zap.Int("settled", len(results)),
			zap.Error(err))
		response.Partial(w, r, err.Error(), results)
		return
	}

	response.JSON(w, r, http.StatusOK, results)
}

func settleStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrSettlementInProgress), errors.Is(err, domain.ErrConcurrentSettlement):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedMethod):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DeletePartner serves DELETE /api/v1/admin/partners/{partnerId}.
func (h *CronHandler) DeletePartner(w http.ResponseWriter, r *http.Request) {
	partnerID := chi.URLParam(r, "partnerId")

	res, err := h.cleanup.DeletePartner(r.Context(), partnerID)
	if errors.Is(err, domain.ErrNotFound) {
		response.Error(w, r, http.StatusNotFound, "partner not found")
		return
	}
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "failed to delete partner")
		return
	}

	response.JSON(w, r, http.StatusOK, res)
}
