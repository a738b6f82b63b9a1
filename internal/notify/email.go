// internal/notify/email.go
package notify

import (
	"context"
	"fmt"

	"partner-payouts/config"
	"partner-payouts/internal/domain"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// PayoutSent carries what a partner sees in the "you've been paid" email.
type PayoutSent struct {
	Partner     *domain.Partner
	Method      domain.PayoutMethod
	Amount      int64
	Currency    string
	PayoutCount int
	VendorRef   string
}

// Emailer sends transactional payout emails through sendgrid.
type Emailer struct {
	client  mailSender
	from    *mail.Email
	appURL  string
	sandbox bool
	logger  *zap.Logger
}

func NewEmailer(cfg config.EmailConfig, appURL string, logger *zap.Logger) *Emailer {
	return NewEmailerWithSender(sendgrid.NewSendClient(cfg.SendgridAPIKey), cfg, appURL, logger)
}

func NewEmailerWithSender(client mailSender, cfg config.EmailConfig, appURL string, logger *zap.Logger) *Emailer {
	return &Emailer{
		client:  client,
		from:    mail.NewEmail(cfg.FromName, cfg.FromAddress),
		appURL:  appURL,
		sandbox: cfg.Sandbox,
		logger:  logger,
	}
}

func (e *Emailer) SendPayoutSent(ctx context.Context, n *PayoutSent) error {
	to := n.Partner.DisplayEmail()
	if to == "" {
		e.logger.Warn("partner has no email, skipping payout notification",
			zap.String("partner_id", n.Partner.ID))
		return nil
	}

	amount := formatAmount(n.Amount, n.Currency)
	subject := fmt.Sprintf("You've been paid %s", amount)
	plain := fmt.Sprintf(
		"Hi %s,\n\n%s from %d payout(s) is on its way to your %s account.\nReference: %s\n\nView your payouts: %s/payouts\n",
		n.Partner.Name, amount, n.PayoutCount, methodLabel(n.Method), n.VendorRef, e.appURL,
	)
	html := fmt.Sprintf(payoutSentHTML, n.Partner.Name, amount, n.PayoutCount, methodLabel(n.Method), n.VendorRef, e.appURL)

	msg := mail.NewSingleEmail(e.from, subject, mail.NewEmail(n.Partner.Name, to), plain, html)
	if e.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := e.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	e.logger.Info("payout notification sent",
		zap.String("partner_id", n.Partner.ID),
		zap.String("method", string(n.Method)))
	return nil
}

func formatAmount(cents int64, currency string) string {
	v := decimal.New(cents, -2).StringFixed(2)
	if currency == "" || currency == "usd" {
		return "$" + v
	}
	return v + " " + currency
}

func methodLabel(m domain.PayoutMethod) string {
	switch m {
	case domain.PayoutMethodStablecoin:
		return "stablecoin wallet"
	case domain.PayoutMethodConnect:
		return "bank"
	case domain.PayoutMethodPayPal:
		return "PayPal"
	}
	return string(m)
}

const payoutSentHTML = `<p>Hi %s,</p>
<p><strong>%s</strong> from %d payout(s) is on its way to your %s account.</p>
<p style="color:#6b7280">Reference: %s</p>
<p><a href="%s/payouts">View your payouts</a></p>`
