// internal/domain/events.go
package domain

import "time"

const (
	EventPayoutSent        = "payout.sent"
	EventPayoutConfirmed   = "payout.confirmed"
	EventReconcileRequired = "cleanup.reconcile"
)

// PayoutSentEvent is published once a batch of payouts has left the platform.
type PayoutSentEvent struct {
	Type      string       `json:"type"`
	PartnerID string       `json:"partner_id"`
	InvoiceID string       `json:"invoice_id,omitempty"`
	Method    PayoutMethod `json:"method"`
	PayoutIDs []string     `json:"payout_ids"`
	Gross     int64        `json:"gross"`
	Net       int64        `json:"net"`
	Currency  string       `json:"currency"`
	VendorRef string       `json:"vendor_ref"`
	SentAt    time.Time    `json:"sent_at"`
}

type PayoutConfirmedEvent struct {
	Type      string       `json:"type"`
	VendorRef string       `json:"vendor_ref"`
	Status    PayoutStatus `json:"status"`
	Count     int64        `json:"count"`
	At        time.Time    `json:"at"`
}

// ReconcileEvent records a best-effort side effect that failed after the
// relational delete already committed.
type ReconcileEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Operation string    `json:"operation"`
	Subject   string    `json:"subject"`
	Target    string    `json:"target"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

// UsageUpdate is one entry on the workspace usage stream.
type UsageUpdate struct {
	WorkspaceID string
	Clicks      int64
	Links       int64
}

// ActivityUpdate is one entry on the partner activity stream.
type ActivityUpdate struct {
	ProgramID string
	PartnerID string
	Clicks    int64
	Leads     int64
	Sales     int64
	SaleCents int64
}
