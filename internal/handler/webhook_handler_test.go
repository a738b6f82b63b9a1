package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/provider/paypal"
	"partner-payouts/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCards struct {
	err error
	got *usecase.CustomerCardsRequest
}

func (f *fakeCards) CustomerCards(_ context.Context, req *usecase.CustomerCardsRequest) (*usecase.CustomerCardsResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.CustomerCardsResponse{Cards: []usecase.Card{{Key: usecase.CardPartner, TimeToLiveSeconds: 300}}}, nil
}

func plainRequest(secret, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/plain", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(plainSecretHeader, secret)
	}
	return req
}

func TestPlainCustomerCards(t *testing.T) {
	cards := &fakeCards{}
	h := NewPlainHandler(cards, "plain-secret", zap.NewNop())

	rec := httptest.NewRecorder()
	h.CustomerCards(rec, plainRequest("plain-secret", `{"cardKeys":["partner"],"customer":{"id":"c_1","email":"ada@example.com"}}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cards":[{"key":"partner","timeToLiveSeconds":300,"components":null}]}`, rec.Body.String())
	assert.Equal(t, "ada@example.com", cards.got.Customer.Email)
}

func TestPlainCustomerCardsErrors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		body   string
		err    error
		want   int
	}{
		{"missing secret", "", `{}`, nil, http.StatusUnauthorized},
		{"wrong secret", "nope", `{}`, nil, http.StatusUnauthorized},
		{"bad body", "plain-secret", `{`, nil, http.StatusBadRequest},
		{"invalid request", "plain-secret", `{}`, domain.ErrInvalidRequest, http.StatusBadRequest},
		{"lookup failure", "plain-secret", `{}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPlainHandler(&fakeCards{err: tt.err}, "plain-secret", zap.NewNop())
			rec := httptest.NewRecorder()
			h.CustomerCards(rec, plainRequest(tt.secret, tt.body))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		})
	}
}

type fakeVerifier struct {
	valid bool
	err   error
	got   paypal.WebhookHeaders
}

func (f *fakeVerifier) VerifyWebhook(_ context.Context, h paypal.WebhookHeaders, _ []byte) (bool, error) {
	f.got = h
	return f.valid, f.err
}

type confirmCall struct {
	ref       string
	succeeded bool
	reason    string
}

type fakeConfirmer struct {
	calls []confirmCall
	err   error
}

func (f *fakeConfirmer) ConfirmPayout(_ context.Context, ref string, succeeded bool, reason string) (int64, error) {
	f.calls = append(f.calls, confirmCall{ref, succeeded, reason})
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func paypalRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypal", strings.NewReader(body))
	req.Header.Set("PAYPAL-AUTH-ALGO", "SHA256withRSA")
	req.Header.Set("PAYPAL-TRANSMISSION-ID", "tx_1")
	return req
}

const batchSuccess = `{"id":"WH-1","event_type":"PAYMENT.PAYOUTSBATCH.SUCCESS","resource":{"batch_header":{"payout_batch_id":"BATCH1","batch_status":"SUCCESS"}}}`

func TestPayPalWebhookConfirmsBatch(t *testing.T) {
	v := &fakeVerifier{valid: true}
	c := &fakeConfirmer{}
	rec := httptest.NewRecorder()
	NewPayPalWebhookHandler(v, c, zap.NewNop()).HandleWebhook(rec, paypalRequest(batchSuccess))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tx_1", v.got.TransmissionID)
	assert.Equal(t, "SHA256withRSA", v.got.AuthAlgo)
	assert.Equal(t, []confirmCall{{"BATCH1", true, "SUCCESS"}}, c.calls)
}

func TestPayPalWebhookDeniedBatch(t *testing.T) {
	c := &fakeConfirmer{}
	body := `{"event_type":"PAYMENT.PAYOUTSBATCH.DENIED","resource":{"batch_header":{"payout_batch_id":"BATCH2","batch_status":"DENIED"}}}`
	rec := httptest.NewRecorder()
	NewPayPalWebhookHandler(&fakeVerifier{valid: true}, c, zap.NewNop()).HandleWebhook(rec, paypalRequest(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []confirmCall{{"BATCH2", false, "DENIED"}}, c.calls)
}

func TestPayPalWebhookRejectsBadSignature(t *testing.T) {
	c := &fakeConfirmer{}
	rec := httptest.NewRecorder()
	NewPayPalWebhookHandler(&fakeVerifier{valid: false}, c, zap.NewNop()).HandleWebhook(rec, paypalRequest(batchSuccess))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, c.calls)
}

func TestPayPalWebhookOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		verr     error
		cerr     error
		want     int
		confirms int
	}{
		{"ignored event", `{"event_type":"PAYMENT.PAYOUTS-ITEM.SUCCEEDED"}`, nil, nil, http.StatusOK, 0},
		{"already settled", batchSuccess, nil, domain.ErrPayoutNotSent, http.StatusOK, 1},
		{"confirm failure", batchSuccess, nil, errors.New("db down"), http.StatusInternalServerError, 1},
		{"verify failure", batchSuccess, errors.New("paypal down"), nil, http.StatusInternalServerError, 0},
		{"missing batch id", `{"event_type":"PAYMENT.PAYOUTSBATCH.SUCCESS"}`, nil, nil, http.StatusBadRequest, 0},
		{"malformed body", `{`, nil, nil, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeConfirmer{err: tt.cerr}
			v := &fakeVerifier{valid: tt.verr == nil, err: tt.verr}
			rec := httptest.NewRecorder()
			NewPayPalWebhookHandler(v, c, zap.NewNop()).HandleWebhook(rec, paypalRequest(tt.body))

			assert.Equal(t, tt.want, rec.Code)
			assert.Len(t, c.calls, tt.confirms)
		})
	}
}
