// internal/domain/partner.go
package domain

import "time"

type Partner struct {
	ID                  string        `json:"id" db:"id"`
	Name                string        `json:"name" db:"name"`
	Email               *string       `json:"email,omitempty" db:"email"`
	Country             *string       `json:"country,omitempty" db:"country"`
	Image               *string       `json:"image,omitempty" db:"image"`
	StripeConnectID     *string       `json:"stripe_connect_id,omitempty" db:"stripe_connect_id"`
	StripeRecipientID   *string       `json:"stripe_recipient_id,omitempty" db:"stripe_recipient_id"`
	PayPalEmail         *string       `json:"paypal_email,omitempty" db:"paypal_email"`
	PayoutsEnabledAt    *time.Time    `json:"payouts_enabled_at,omitempty" db:"payouts_enabled_at"`
	PayoutMethodHash    *string       `json:"payout_method_hash,omitempty" db:"payout_method_hash"`
	DefaultPayoutMethod *PayoutMethod `json:"default_payout_method,omitempty" db:"default_payout_method"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
}

func (p *Partner) PayoutsEnabled() bool {
	return p.PayoutsEnabledAt != nil
}

// AccountFor returns the vendor account reference used by the given rail.
func (p *Partner) AccountFor(method PayoutMethod) string {
	var ref *string
	switch method {
	case PayoutMethodStablecoin:
		ref = p.StripeRecipientID
	case PayoutMethodConnect:
		ref = p.StripeConnectID
	case PayoutMethodPayPal:
		ref = p.PayPalEmail
	}
	if ref == nil {
		return ""
	}
	return *ref
}

func (p *Partner) DisplayEmail() string {
	if p.Email != nil {
		return *p.Email
	}
	return ""
}

// PartnerPlatform is an external account (Google/YouTube) verified for a partner.
type PartnerPlatform struct {
	PartnerID  string    `json:"partner_id"`
	Platform   string    `json:"platform"`
	Identifier string    `json:"identifier"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}
