// internal/provider/stripev2/stripev2.go
package stripev2

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"partner-payouts/config"
	"partner-payouts/internal/domain"
	"partner-payouts/internal/provider"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const vendor = "stripe"

// StablecoinRail pays partners through Stripe v2 outbound payments to a
// recipient account with an active crypto wallet.
type StablecoinRail struct {
	client             *resty.Client
	financialAccountID string
	paymentMethodID    string
	logger             *zap.Logger
}

func NewStablecoinRail(cfg config.StripeConfig, logger *zap.Logger) *StablecoinRail {
	client := resty.New().
		SetBaseURL(cfg.V2BaseURL).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Stripe-Version", cfg.V2APIVersion).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &StablecoinRail{
		client:             client,
		financialAccountID: cfg.FinancialAccountID,
		paymentMethodID:    cfg.PaymentMethodID,
		logger:             logger,
	}
}

func (s *StablecoinRail) Method() domain.PayoutMethod {
	return domain.PayoutMethodStablecoin
}

type capabilityStatus struct {
	Status string `json:"status"`
}

// Account is the subset of a v2 core account the rail inspects.
type Account struct {
	ID            string `json:"id"`
	Closed        bool   `json:"closed"`
	Configuration struct {
		Recipient *struct {
			Capabilities struct {
				CryptoWallets *capabilityStatus `json:"crypto_wallets"`
			} `json:"capabilities"`
		} `json:"recipient"`
	} `json:"configuration"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StablecoinRail) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acct Account
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", accountID).
		SetQueryParam("include", "configuration.recipient").
		Get("/v2/core/accounts/{id}")
	if err != nil {
		return nil, fmt.Errorf("stripe account request failed: %w", err)
	}
	if resp.IsError() {
		return nil, vendorError(resp)
	}
	if err := json.Unmarshal(resp.Body(), &acct); err != nil {
		return nil, fmt.Errorf("failed to parse stripe account: %w", err)
	}
	if acct.ID == "" {
		return nil, &provider.VendorError{Vendor: vendor, Status: resp.StatusCode(), Message: "account response missing id"}
	}
	return &acct, nil
}

func (s *StablecoinRail) CheckRecipient(ctx context.Context, account string) (provider.RecipientState, error) {
	acct, err := s.GetAccount(ctx, account)
	if err != nil {
		return "", err
	}

	if acct.Closed {
		return provider.RecipientClosed, nil
	}

	rcpt := acct.Configuration.Recipient
	if rcpt == nil || rcpt.Capabilities.CryptoWallets == nil || rcpt.Capabilities.CryptoWallets.Status != "active" {
		return provider.RecipientCapabilityInactive, nil
	}
	return provider.RecipientReady, nil
}

type amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type outboundPaymentRequest struct {
	From struct {
		FinancialAccount string `json:"financial_account"`
		Currency         string `json:"currency"`
	} `json:"from"`
	To struct {
		Recipient    string `json:"recipient"`
		PayoutMethod string `json:"payout_method,omitempty"`
		Currency     string `json:"currency"`
	} `json:"to"`
	Amount      amount            `json:"amount"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type OutboundPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount amount `json:"amount"`
}

// Send creates an outbound payment from the platform financial account.
func (s *StablecoinRail) Send(ctx context.Context, req *provider.SendRequest) (*provider.SendResult, error) {
	body := outboundPaymentRequest{
		Amount:      amount{Value: req.Amount, Currency: "usd"},
		Description: req.Description,
		Metadata: map[string]string{
			"partnerId":   req.PartnerID,
			"payoutCount": strconv.Itoa(len(req.PayoutIDs)),
		},
	}
	if req.InvoiceID != "" {
		body.Metadata["invoiceId"] = req.InvoiceID
	}
	body.From.FinancialAccount = s.financialAccountID
	body.From.Currency = "usd"
	body.To.Recipient = req.Account
	body.To.PayoutMethod = s.paymentMethodID
	body.To.Currency = "usdc"

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(body).
		Post("/v2/money_management/outbound_payments")
	if err != nil {
		return nil, fmt.Errorf("stripe outbound payment request failed: %w", err)
	}
	if resp.IsError() {
		return nil, vendorError(resp)
	}

	var out OutboundPayment
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse outbound payment: %w", err)
	}

	s.logger.Info("stripe outbound payment created",
		zap.String("partner_id", req.PartnerID),
		zap.String("outbound_payment_id", out.ID),
		zap.String("status", out.Status),
		zap.Int64("amount", req.Amount))

	return &provider.SendResult{ID: out.ID, Status: out.Status}, nil
}

func vendorError(resp *resty.Response) error {
	ve := &provider.VendorError{Vendor: vendor, Status: resp.StatusCode()}

	var env errorEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error.Message != "" {
		ve.Code = env.Error.Code
		ve.Message = env.Error.Message
		return ve
	}
	ve.Message = string(resp.Body())
	return ve
}
