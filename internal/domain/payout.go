// internal/domain/payout.go
package domain

import (
	"time"
)

type PayoutStatus string
type PayoutMethod string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusProcessed  PayoutStatus = "processed"
	PayoutStatusSent       PayoutStatus = "sent"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCanceled   PayoutStatus = "canceled"
)

const (
	PayoutMethodStablecoin PayoutMethod = "stablecoin"
	PayoutMethodConnect    PayoutMethod = "connect"
	PayoutMethodPayPal     PayoutMethod = "paypal"
)

func (m PayoutMethod) Valid() bool {
	switch m {
	case PayoutMethodStablecoin, PayoutMethodConnect, PayoutMethodPayPal:
		return true
	}
	return false
}

// Payout is one scheduled payment to a partner for a program period.
type Payout struct {
	ID               string       `json:"id" db:"id"`
	PartnerID        string       `json:"partner_id" db:"partner_id"`
	ProgramID        string       `json:"program_id" db:"program_id"`
	InvoiceID        *string      `json:"invoice_id,omitempty" db:"invoice_id"`
	Amount           int64        `json:"amount" db:"amount"`
	Currency         string       `json:"currency" db:"currency"`
	Status           PayoutStatus `json:"status" db:"status"`
	Method           PayoutMethod `json:"method" db:"method"`
	StripePayoutID   *string      `json:"stripe_payout_id,omitempty" db:"stripe_payout_id"`
	StripeTransferID *string      `json:"stripe_transfer_id,omitempty" db:"stripe_transfer_id"`
	PayPalBatchID    *string      `json:"paypal_batch_id,omitempty" db:"paypal_batch_id"`
	FailureReason    *string      `json:"failure_reason,omitempty" db:"failure_reason"`
	PeriodStart      *time.Time   `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd        *time.Time   `json:"period_end,omitempty" db:"period_end"`
	PaidAt           *time.Time   `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// IsFinal reports whether the payout can no longer change status.
func (p *Payout) IsFinal() bool {
	return p.Status == PayoutStatusCompleted || p.Status == PayoutStatusCanceled
}

// VendorRef returns whichever vendor identifier was recorded on settlement.
func (p *Payout) VendorRef() string {
	switch {
	case p.StripePayoutID != nil:
		return *p.StripePayoutID
	case p.StripeTransferID != nil:
		return *p.StripeTransferID
	case p.PayPalBatchID != nil:
		return *p.PayPalBatchID
	}
	return ""
}

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusProcessed CommissionStatus = "processed"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusRefunded  CommissionStatus = "refunded"
	CommissionStatusCanceled  CommissionStatus = "canceled"
)

// Commission is a partner's earning from one attributed event.
type Commission struct {
	ID        string           `json:"id" db:"id"`
	PartnerID string           `json:"partner_id" db:"partner_id"`
	ProgramID string           `json:"program_id" db:"program_id"`
	PayoutID  *string          `json:"payout_id,omitempty" db:"payout_id"`
	Amount    int64            `json:"amount" db:"amount"`
	Earnings  int64            `json:"earnings" db:"earnings"`
	Status    CommissionStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// PendingSettlement is one partner's processing payouts on one rail.
type PendingSettlement struct {
	PartnerID string
	Method    PayoutMethod
}

// SentUpdate describes the state written when a batch of payouts leaves the platform.
type SentUpdate struct {
	PayoutIDs []string
	Method    PayoutMethod
	VendorRef string
	PaidAt    time.Time
}
