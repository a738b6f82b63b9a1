package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/usecase"
	"partner-payouts/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, scope auth.Claims) string {
	t.Helper()
	tok, err := auth.NewVerifier(testSecret).Sign(scope, time.Hour)
	require.NoError(t, err)
	return tok
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) domain.DubApiError {
	t.Helper()
	var body struct {
		Error domain.DubApiError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

type fakeInvoices struct {
	detail *domain.InvoiceDetail
	err    error
	gotWS  string
}

func (f *fakeInvoices) GetForWorkspace(_ context.Context, workspaceID, _ string) (*domain.InvoiceDetail, error) {
	f.gotWS = workspaceID
	return f.detail, f.err
}

type fakeCleanup struct {
	res        *usecase.CleanupResult
	err        error
	gotLinkIDs []string
}

func (f *fakeCleanup) DeletePartner(context.Context, string) (*usecase.CleanupResult, error) {
	return f.res, f.err
}

func (f *fakeCleanup) BulkDeleteLinks(_ context.Context, _ string, ids []string) (*usecase.CleanupResult, error) {
	f.gotLinkIDs = ids
	return f.res, f.err
}

func invoiceRouter(svc InvoiceService) http.Handler {
	r := chi.NewRouter()
	r.With(RequireWorkspace(auth.NewVerifier(testSecret))).
		Get("/api/v1/invoices/{invoiceId}", NewInvoiceHandler(svc, zap.NewNop()).GetInvoice)
	return r
}

func TestGetInvoiceRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	invoiceRouter(&fakeInvoices{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv_1", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, "unauthorized", apiErr.Code)
	assert.Equal(t, "Missing Authorization header.", apiErr.Message)
}

func TestGetInvoiceRejectsPartnerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv_1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, auth.Claims{UserID: "u_1", PartnerID: "pn_1"}))
	rec := httptest.NewRecorder()
	invoiceRouter(&fakeInvoices{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired session token.", decodeAPIError(t, rec).Message)
}

func TestGetInvoiceNotFound(t *testing.T) {
	svc := &fakeInvoices{err: domain.ErrNotFound}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv_other", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, auth.Claims{UserID: "u_1", WorkspaceID: "ws_1"}))
	rec := httptest.NewRecorder()
	invoiceRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "Invoice not found.", apiErr.Message)
	assert.Equal(t, "ws_1", svc.gotWS)
}

func TestGetInvoice(t *testing.T) {
	svc := &fakeInvoices{detail: &domain.InvoiceDetail{
		Invoice: domain.Invoice{ID: "inv_1", WorkspaceID: "ws_1", Type: domain.InvoiceTypePartnerPayout, Total: 6000},
		Payouts: []*domain.Payout{{ID: "po_1", Amount: 6000}},
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/inv_1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, auth.Claims{UserID: "u_1", WorkspaceID: "ws_1"}))
	rec := httptest.NewRecorder()
	invoiceRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.InvoiceDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "inv_1", got.ID)
	require.Len(t, got.Payouts, 1)
	assert.Equal(t, int64(6000), got.Payouts[0].Amount)
}

func linksRouter(svc CleanupService) http.Handler {
	r := chi.NewRouter()
	r.With(RequireWorkspace(auth.NewVerifier(testSecret))).
		Delete("/api/v1/links/bulk", NewLinksHandler(svc, zap.NewNop()).BulkDelete)
	return r
}

func TestBulkDeleteLinks(t *testing.T) {
	svc := &fakeCleanup{res: &usecase.CleanupResult{Links: 2}}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/links/bulk", strings.NewReader(`{"linkIds":["lnk_1","lnk_2"]}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, auth.Claims{UserID: "u_1", WorkspaceID: "ws_1"}))
	rec := httptest.NewRecorder()
	linksRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deletedCount":2}`, rec.Body.String())
	assert.Equal(t, []string{"lnk_1", "lnk_2"}, svc.gotLinkIDs)
}

func TestBulkDeleteLinksValidation(t *testing.T) {
	tooMany := make([]string, maxBulkDelete+1)
	for i := range tooMany {
		tooMany[i] = "lnk"
	}
	many, err := json.Marshal(map[string][]string{"linkIds": tooMany})
	require.NoError(t, err)

	for name, body := range map[string]string{
		"empty":    `{"linkIds":[]}`,
		"garbage":  `nope`,
		"too many": string(many),
	} {
		t.Run(name, func(t *testing.T) {
			svc := &fakeCleanup{}
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/links/bulk", strings.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+signToken(t, auth.Claims{UserID: "u_1", WorkspaceID: "ws_1"}))
			rec := httptest.NewRecorder()
			linksRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeAPIError(t, rec).Code)
			assert.Nil(t, svc.gotLinkIDs)
		})
	}
}
