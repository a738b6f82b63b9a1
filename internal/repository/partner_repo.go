// internal/repository/partner_repo.go
package repository

import (
	"context"
	"fmt"

	"partner-payouts/internal/domain"

	"github.com/jackc/pgx/v5"
)

type PartnerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Partner, error)
	FindByEmail(ctx context.Context, email string) (*domain.Partner, error)
	ClearRecipient(ctx context.Context, partnerID string, method domain.PayoutMethod) error
	DisablePayouts(ctx context.Context, partnerID string) error
	SetPayPalEmail(ctx context.Context, partnerID, email string) error
	UpsertPlatform(ctx context.Context, p *domain.PartnerPlatform) error
}

type partnerRepo struct {
	db DB
}

func NewPartnerRepository(db DB) PartnerRepository {
	return &partnerRepo{db: db}
}

const partnerColumns = `
	id, name, email, country, image, stripe_connect_id, stripe_recipient_id,
	paypal_email, payouts_enabled_at, payout_method_hash, default_payout_method, created_at`

func scanPartner(row pgx.Row) (*domain.Partner, error) {
	var p domain.Partner
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Country,
		&p.Image,
		&p.StripeConnectID,
		&p.StripeRecipientID,
		&p.PayPalEmail,
		&p.PayoutsEnabledAt,
		&p.PayoutMethodHash,
		&p.DefaultPayoutMethod,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *partnerRepo) GetByID(ctx context.Context, id string) (*domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`

	p, err := scanPartner(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "partner")
	}
	return p, nil
}

func (r *partnerRepo) FindByEmail(ctx context.Context, email string) (*domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE LOWER(email) = LOWER($1) LIMIT 1`

	p, err := scanPartner(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFound(err, "partner")
	}
	return p, nil
}

// ClearRecipient forgets the partner's account on a rail whose vendor reported
// it closed, and turns payouts off until they reconnect.
func (r *partnerRepo) ClearRecipient(ctx context.Context, partnerID string, method domain.PayoutMethod) error {
	var col string
	switch method {
	case domain.PayoutMethodStablecoin:
		col = "stripe_recipient_id"
	case domain.PayoutMethodConnect:
		col = "stripe_connect_id"
	case domain.PayoutMethodPayPal:
		col = "paypal_email"
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedMethod, method)
	}

	query := `UPDATE partners SET ` + col + ` = NULL, payouts_enabled_at = NULL, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, partnerID); err != nil {
		return fmt.Errorf("failed to clear partner recipient: %w", err)
	}
	return nil
}

func (r *partnerRepo) DisablePayouts(ctx context.Context, partnerID string) error {
	query := `UPDATE partners SET payouts_enabled_at = NULL, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, partnerID); err != nil {
		return fmt.Errorf("failed to disable partner payouts: %w", err)
	}
	return nil
}

func (r *partnerRepo) SetPayPalEmail(ctx context.Context, partnerID, email string) error {
	query := `
		UPDATE partners
		SET paypal_email = $2,
		    payouts_enabled_at = COALESCE(payouts_enabled_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, partnerID, email)
	if err != nil {
		if PGErrorIsUnique(err) {
			return fmt.Errorf("paypal email already connected to another partner: %w", domain.ErrInvalidRequest)
		}
		return fmt.Errorf("failed to set paypal email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partner %s: %w", partnerID, domain.ErrNotFound)
	}
	return nil
}

func (r *partnerRepo) UpsertPlatform(ctx context.Context, p *domain.PartnerPlatform) error {
	query := `
		INSERT INTO partner_platforms (partner_id, platform, identifier, email, verified_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (partner_id, platform)
		DO UPDATE SET identifier = EXCLUDED.identifier,
		              email = EXCLUDED.email,
		              verified_at = EXCLUDED.verified_at`

	if _, err := r.db.Exec(ctx, query, p.PartnerID, p.Platform, p.Identifier, p.Email, p.VerifiedAt); err != nil {
		return fmt.Errorf("failed to upsert partner platform: %w", err)
	}
	return nil
}

func PGErrorIsUnique(err error) bool {
	return domain.PGErrorCode(err) == "23505"
}
