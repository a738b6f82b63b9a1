// internal/provider/connect/connect.go
package connect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/provider"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

const vendor = "stripe"

// AccountAPI is the part of the Stripe accounts client the rail needs.
type AccountAPI interface {
	GetByID(id string, params *stripe.AccountParams) (*stripe.Account, error)
	Del(id string, params *stripe.AccountParams) (*stripe.Account, error)
}

type TransferAPI interface {
	New(params *stripe.TransferParams) (*stripe.Transfer, error)
}

// ConnectRail pays partners with bank accounts through Stripe Connect transfers.
type ConnectRail struct {
	accounts  AccountAPI
	transfers TransferAPI
	logger    *zap.Logger
}

func NewConnectRail(secretKey string, logger *zap.Logger) *ConnectRail {
	sc := client.New(secretKey, nil)
	return NewConnectRailWithClients(sc.Accounts, sc.Transfers, logger)
}

func NewConnectRailWithClients(accounts AccountAPI, transfers TransferAPI, logger *zap.Logger) *ConnectRail {
	return &ConnectRail{accounts: accounts, transfers: transfers, logger: logger}
}

func (c *ConnectRail) Method() domain.PayoutMethod {
	return domain.PayoutMethodConnect
}

func (c *ConnectRail) CheckRecipient(ctx context.Context, account string) (provider.RecipientState, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := c.accounts.GetByID(account, params)
	if err != nil {
		if accountGone(err) {
			return provider.RecipientClosed, nil
		}
		return "", toVendorError(err)
	}

	if acct.Capabilities == nil || acct.Capabilities.Transfers != stripe.AccountCapabilityStatusActive || !acct.PayoutsEnabled {
		return provider.RecipientCapabilityInactive, nil
	}
	return provider.RecipientReady, nil
}

// Send creates a transfer to the connected account. The transfer group ties
// every transfer for one invoice together on the Stripe side.
func (c *ConnectRail) Send(ctx context.Context, req *provider.SendRequest) (*provider.SendResult, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(req.Account),
		Metadata: map[string]string{
			"partnerId": req.PartnerID,
		},
	}
	if req.InvoiceID != "" {
		params.TransferGroup = stripe.String(req.InvoiceID)
		params.Metadata["invoiceId"] = req.InvoiceID
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	t, err := c.transfers.New(params)
	if err != nil {
		return nil, toVendorError(err)
	}

	c.logger.Info("stripe transfer created",
		zap.String("partner_id", req.PartnerID),
		zap.String("transfer_id", t.ID),
		zap.Int64("amount", req.Amount))

	return &provider.SendResult{ID: t.ID, Status: "sent"}, nil
}

// DeleteAccount removes a connected account. Accounts already gone count as deleted.
func (c *ConnectRail) DeleteAccount(ctx context.Context, account string) error {
	params := &stripe.AccountParams{}
	params.Context = ctx

	if _, err := c.accounts.Del(account, params); err != nil {
		if accountGone(err) {
			return nil
		}
		return toVendorError(err)
	}
	return nil
}

func accountGone(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == stripe.ErrorCodeResourceMissing || string(se.Code) == "account_invalid"
}

func toVendorError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &provider.VendorError{
			Vendor:  vendor,
			Status:  se.HTTPStatusCode,
			Code:    string(se.Code),
			Message: se.Msg,
		}
	}
	return fmt.Errorf("stripe request failed: %w", err)
}
