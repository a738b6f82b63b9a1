package connect

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"partner-payouts/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

type mockAccounts struct {
	GetByIDFunc func(id string, params *stripe.AccountParams) (*stripe.Account, error)
	DelFunc     func(id string, params *stripe.AccountParams) (*stripe.Account, error)
}

func (m *mockAccounts) GetByID(id string, params *stripe.AccountParams) (*stripe.Account, error) {
	return m.GetByIDFunc(id, params)
}

func (m *mockAccounts) Del(id string, params *stripe.AccountParams) (*stripe.Account, error) {
	return m.DelFunc(id, params)
}

type mockTransfers struct {
	NewFunc func(params *stripe.TransferParams) (*stripe.Transfer, error)
}

func (m *mockTransfers) New(params *stripe.TransferParams) (*stripe.Transfer, error) {
	return m.NewFunc(params)
}

func TestCheckRecipientStates(t *testing.T) {
	cases := []struct {
		name string
		acct *stripe.Account
		err  error
		want provider.RecipientState
	}{
		{
			name: "ready",
			acct: &stripe.Account{PayoutsEnabled: true, Capabilities: &stripe.AccountCapabilities{Transfers: stripe.AccountCapabilityStatusActive}},
			want: provider.RecipientReady,
		},
		{
			name: "transfers inactive",
			acct: &stripe.Account{PayoutsEnabled: true, Capabilities: &stripe.AccountCapabilities{Transfers: stripe.AccountCapabilityStatusInactive}},
			want: provider.RecipientCapabilityInactive,
		},
		{
			name: "payouts disabled",
			acct: &stripe.Account{PayoutsEnabled: false, Capabilities: &stripe.AccountCapabilities{Transfers: stripe.AccountCapabilityStatusActive}},
			want: provider.RecipientCapabilityInactive,
		},
		{
			name: "deleted account",
			err:  &stripe.Error{HTTPStatusCode: http.StatusNotFound, Code: stripe.ErrorCodeResourceMissing, Msg: "No such account"},
			want: provider.RecipientClosed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rail := NewConnectRailWithClients(&mockAccounts{
				GetByIDFunc: func(id string, params *stripe.AccountParams) (*stripe.Account, error) {
					assert.Equal(t, "acct_1", id)
					return tc.acct, tc.err
				},
			}, nil, zap.NewNop())

			state, err := rail.CheckRecipient(context.Background(), "acct_1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, state)
		})
	}
}

func TestCheckRecipientVendorError(t *testing.T) {
	rail := NewConnectRailWithClients(&mockAccounts{
		GetByIDFunc: func(string, *stripe.AccountParams) (*stripe.Account, error) {
			return nil, &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests, Code: "rate_limit", Msg: "Too many requests"}
		},
	}, nil, zap.NewNop())

	_, err := rail.CheckRecipient(context.Background(), "acct_1")
	ve, ok := provider.AsVendorError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, ve.Status)
	assert.Equal(t, "Too many requests", ve.Message)
}

func TestSendSetsIdempotencyKey(t *testing.T) {
	var got *stripe.TransferParams
	rail := NewConnectRailWithClients(nil, &mockTransfers{
		NewFunc: func(params *stripe.TransferParams) (*stripe.Transfer, error) {
			got = params
			return &stripe.Transfer{ID: "tr_123"}, nil
		},
	}, zap.NewNop())

	res, err := rail.Send(context.Background(), &provider.SendRequest{
		Account:        "acct_1",
		Amount:         6000,
		Currency:       "USD",
		IdempotencyKey: "inv_1-pn_1",
		PartnerID:      "pn_1",
		InvoiceID:      "inv_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_123", res.ID)

	require.NotNil(t, got)
	assert.Equal(t, int64(6000), *got.Amount)
	assert.Equal(t, "usd", *got.Currency)
	assert.Equal(t, "acct_1", *got.Destination)
	assert.Equal(t, "inv_1", *got.TransferGroup)
	require.NotNil(t, got.IdempotencyKey)
	assert.Equal(t, "inv_1-pn_1", *got.IdempotencyKey)
}

func TestSendWrapsNonStripeErrors(t *testing.T) {
	rail := NewConnectRailWithClients(nil, &mockTransfers{
		NewFunc: func(*stripe.TransferParams) (*stripe.Transfer, error) {
			return nil, errors.New("dial tcp: timeout")
		},
	}, zap.NewNop())

	_, err := rail.Send(context.Background(), &provider.SendRequest{Account: "acct_1", Amount: 1, IdempotencyKey: "k"})
	require.Error(t, err)
	_, ok := provider.AsVendorError(err)
	assert.False(t, ok)
}

func TestDeleteAccountTreatsMissingAsDeleted(t *testing.T) {
	rail := NewConnectRailWithClients(&mockAccounts{
		DelFunc: func(string, *stripe.AccountParams) (*stripe.Account, error) {
			return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Code: stripe.ErrorCodeResourceMissing}
		},
	}, nil, zap.NewNop())

	assert.NoError(t, rail.DeleteAccount(context.Background(), "acct_1"))
}
