// internal/handler/links_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/usecase"
	"partner-payouts/pkg/response"

	"go.uber.org/zap"
)

const maxBulkDelete = 100

type CleanupService interface {
	DeletePartner(ctx context.Context, partnerID string) (*usecase.CleanupResult, error)
	BulkDeleteLinks(ctx context.Context, workspaceID string, linkIDs []string) (*usecase.CleanupResult, error)
}

type LinksHandler struct {
	cleanup CleanupService
	logger  *zap.Logger
}

func NewLinksHandler(cleanup CleanupService, logger *zap.Logger) *LinksHandler {
	return &LinksHandler{cleanup: cleanup, logger: logger}
}

type bulkDeleteRequest struct {
	LinkIDs []string `json:"linkIds"`
}

// BulkDelete serves DELETE /api/v1/links/bulk behind RequireWorkspace.
func (h *LinksHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		response.APIError(w, r, domain.NewUnauthorized("Missing session."))
		return
	}

	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.LinkIDs) == 0 {
		response.APIError(w, r, domain.NewBadRequest("Provide at least one link id in linkIds."))
		return
	}
	if len(req.LinkIDs) > maxBulkDelete {
		response.APIError(w, r, domain.NewBadRequest("You can delete at most 100 links at a time."))
		return
	}

	res, err := h.cleanup.BulkDeleteLinks(r.Context(), claims.WorkspaceID, req.LinkIDs)
	if err != nil {
		h.logger.Error("bulk link delete failed",
			zap.String("workspace_id", claims.WorkspaceID),
			zap.Error(err))
		response.APIError(w, r, domain.NewInternal("Failed to delete links."))
		return
	}

	response.Raw(w, r, http.StatusOK, map[string]int{"deletedCount": res.Links})
}
