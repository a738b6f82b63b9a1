// internal/domain/invoice.go
package domain

import (
	"encoding/json"
	"time"
)

type InvoiceType string
type InvoiceStatus string

const (
	InvoiceTypePartnerPayout InvoiceType = "partnerPayout"
	InvoiceTypeDomainRenewal InvoiceType = "domainRenewal"
)

const (
	InvoiceStatusProcessing InvoiceStatus = "processing"
	InvoiceStatusCompleted  InvoiceStatus = "completed"
	InvoiceStatusFailed     InvoiceStatus = "failed"
)

type Invoice struct {
	ID                   string          `json:"id"`
	WorkspaceID          string          `json:"workspace_id"`
	ProgramID            *string         `json:"program_id,omitempty"`
	Number               *string         `json:"number,omitempty"`
	Type                 InvoiceType     `json:"type"`
	Status               InvoiceStatus   `json:"status"`
	Amount               int64           `json:"amount"`
	Fee                  int64           `json:"fee"`
	Total                int64           `json:"total"`
	PaymentMethod        *string         `json:"payment_method,omitempty"`
	StripeChargeMetadata json.RawMessage `json:"stripe_charge_metadata,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
}

// InvoiceDetail is an invoice together with the payouts it paid for.
type InvoiceDetail struct {
	Invoice
	Payouts []*Payout `json:"payouts,omitempty"`
}

type Workspace struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	StripeID   *string `json:"stripe_id,omitempty"`
	Plan       string  `json:"plan"`
	Usage      int64   `json:"usage"`
	UsageLimit int64   `json:"usage_limit"`
	LinksUsage int64   `json:"links_usage"`
}
