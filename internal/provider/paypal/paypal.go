// internal/provider/paypal/paypal.go
package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"partner-payouts/config"
	"partner-payouts/internal/domain"
	"partner-payouts/internal/provider"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	vendor   = "paypal"
	tokenKey = "paypal:token"
)

// Client talks to the PayPal REST API. It settles payouts, verifies webhook
// signatures and backs the "Log in with PayPal" connect flow.
type Client struct {
	cfg    config.PayPalConfig
	http   *resty.Client
	redis  *redis.Client
	logger *zap.Logger
}

func NewClient(cfg config.PayPalConfig, redisClient *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(30 * time.Second),
		redis:  redisClient,
		logger: logger,
	}
}

func (c *Client) Method() domain.PayoutMethod {
	return domain.PayoutMethodPayPal
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns the cached client-credentials token, fetching a new one
// when the cache is empty. Cached tokens expire a minute before PayPal's.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if tok, err := c.redis.Get(ctx, tokenKey).Result(); err == nil && tok != "" {
		return tok, nil
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("paypal token cache read failed", zap.Error(err))
	}

	tok, err := c.requestToken(ctx, map[string]string{"grant_type": "client_credentials"})
	if err != nil {
		return "", err
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - time.Minute
	if ttl > 0 {
		if err := c.redis.Set(ctx, tokenKey, tok.AccessToken, ttl).Err(); err != nil {
			c.logger.Warn("paypal token cache write failed", zap.Error(err))
		}
	}
	return tok.AccessToken, nil
}

func (c *Client) requestToken(ctx context.Context, form map[string]string) (*tokenResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(form).
		Post("/v1/oauth2/token")
	if err != nil {
		return nil, fmt.Errorf("paypal token request failed: %w", err)
	}
	if resp.IsError() {
		return nil, vendorError(resp)
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, fmt.Errorf("failed to parse paypal token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, &provider.VendorError{Vendor: vendor, Status: resp.StatusCode(), Message: "token response missing access_token"}
	}
	return &tok, nil
}

// CheckRecipient has nothing to look up on PayPal; payouts to an unclaimed
// email are held by PayPal until the recipient signs up.
func (c *Client) CheckRecipient(ctx context.Context, account string) (provider.RecipientState, error) {
	if account == "" {
		return provider.RecipientClosed, nil
	}
	return provider.RecipientReady, nil
}

type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutItem struct {
	RecipientType string `json:"recipient_type"`
	Amount        money  `json:"amount"`
	Receiver      string `json:"receiver"`
	SenderItemID  string `json:"sender_item_id"`
	Note          string `json:"note,omitempty"`
}

type payoutBatchRequest struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject"`
		RecipientType string `json:"recipient_type"`
	} `json:"sender_batch_header"`
	Items []payoutItem `json:"items"`
}

type payoutBatchResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

// Send creates a single-item batch payout. PayPal rejects a reused
// sender_batch_id, which makes the idempotency key authoritative.
func (c *Client) Send(ctx context.Context, req *provider.SendRequest) (*provider.SendResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get paypal access token: %w", err)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	var body payoutBatchRequest
	body.SenderBatchHeader.SenderBatchID = req.IdempotencyKey
	body.SenderBatchHeader.EmailSubject = "You've received a partner payout"
	body.SenderBatchHeader.RecipientType = "EMAIL"
	body.Items = []payoutItem{{
		RecipientType: "EMAIL",
		Amount:        money{Value: decimal.New(req.Amount, -2).StringFixed(2), Currency: currency},
		Receiver:      req.Account,
		SenderItemID:  req.PartnerID,
		Note:          req.Description,
	}}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/v1/payments/payouts")
	if err != nil {
		return nil, fmt.Errorf("paypal payout request failed: %w", err)
	}
	if resp.IsError() {
		return nil, vendorError(resp)
	}

	var out payoutBatchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse paypal payout: %w", err)
	}

	c.logger.Info("paypal batch payout created",
		zap.String("partner_id", req.PartnerID),
		zap.String("payout_batch_id", out.BatchHeader.PayoutBatchID),
		zap.String("batch_status", out.BatchHeader.BatchStatus))

	return &provider.SendResult{ID: out.BatchHeader.PayoutBatchID, Status: out.BatchHeader.BatchStatus}, nil
}

// WebhookHeaders are the transmission headers PayPal signs webhooks with.
type WebhookHeaders struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
}

// VerifyWebhook asks PayPal whether the payload was signed for our webhook id.
func (c *Client) VerifyWebhook(ctx context.Context, h WebhookHeaders, payload []byte) (bool, error) {
	if c.cfg.WebhookID == "" {
		return false, errors.New("PAYPAL_WEBHOOK_ID is not configured")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return false, err
	}

	body := map[string]any{
		"auth_algo":         h.AuthAlgo,
		"cert_url":          h.CertURL,
		"transmission_id":   h.TransmissionID,
		"transmission_sig":  h.TransmissionSig,
		"transmission_time": h.TransmissionTime,
		"webhook_id":        c.cfg.WebhookID,
		"webhook_event":     json.RawMessage(payload),
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/v1/notifications/verify-webhook-signature")
	if err != nil {
		return false, fmt.Errorf("paypal verify request failed: %w", err)
	}
	if resp.IsError() {
		return false, vendorError(resp)
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return false, fmt.Errorf("failed to parse verification response: %w", err)
	}
	return out.VerificationStatus == "SUCCESS", nil
}

// AuthorizeURL is where partners are sent to connect their PayPal account.
func (c *Client) AuthorizeURL(state string) string {
	host := "https://www.sandbox.paypal.com"
	if c.cfg.Environment == "production" {
		host = "https://www.paypal.com"
	}

	q := url.Values{}
	q.Set("flowEntry", "static")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "openid email https://uri.paypal.com/services/paypalattributes")
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("state", state)
	return host + "/connect?" + q.Encode()
}

type UserInfo struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// ExchangeCode trades an authorization code for the connected user's identity.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	tok, err := c.requestToken(ctx, map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(tok.AccessToken).
		SetQueryParam("schema", "paypalv1.1").
		Get("/v1/identity/oauth2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("paypal userinfo request failed: %w", err)
	}
	if resp.IsError() {
		return nil, vendorError(resp)
	}

	var raw struct {
		UserID        string `json:"user_id"`
		EmailVerified bool   `json:"verified_account"`
		Emails        []struct {
			Value   string `json:"value"`
			Primary bool   `json:"primary"`
		} `json:"emails"`
	}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse paypal userinfo: %w", err)
	}

	info := &UserInfo{UserID: raw.UserID, EmailVerified: raw.EmailVerified}
	for _, e := range raw.Emails {
		if e.Primary || info.Email == "" {
			info.Email = e.Value
		}
	}
	if info.Email == "" {
		return nil, &provider.VendorError{Vendor: vendor, Status: resp.StatusCode(), Message: "userinfo missing email"}
	}
	return info, nil
}

func vendorError(resp *resty.Response) error {
	ve := &provider.VendorError{Vendor: vendor, Status: resp.StatusCode()}

	var env struct {
		Name             string `json:"name"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(resp.Body(), &env); err == nil {
		switch {
		case env.Message != "":
			ve.Code, ve.Message = env.Name, env.Message
			return ve
		case env.ErrorDescription != "":
			ve.Code, ve.Message = env.Error, env.ErrorDescription
			return ve
		}
	}
	ve.Message = string(resp.Body())
	return ve
}
