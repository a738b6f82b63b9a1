// internal/repository/payout_repo.go
package repository

import (
	"context"
	"fmt"
	"time"

	"partner-payouts/internal/domain"

	"github.com/jackc/pgx/v5"
)

type PayoutRepository interface {
	ListProcessing(ctx context.Context, partnerID string, method domain.PayoutMethod, invoiceID *string) ([]*domain.Payout, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*domain.Payout, error)
	PendingSettlements(ctx context.Context, invoiceID *string) ([]domain.PendingSettlement, error)
	MarkProcessed(ctx context.Context, payoutIDs []string) (int64, error)
	MarkSent(ctx context.Context, upd domain.SentUpdate) error
	ConfirmByVendorRef(ctx context.Context, vendorRef string, status domain.PayoutStatus, reason *string) (int64, error)
}

type payoutRepo struct {
	db DB
}

func NewPayoutRepository(db DB) PayoutRepository {
	return &payoutRepo{db: db}
}

const payoutColumns = `
	id, partner_id, program_id, invoice_id, amount, currency, status, method,
	stripe_payout_id, stripe_transfer_id, paypal_batch_id, failure_reason,
	period_start, period_end, paid_at, created_at, updated_at`

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(
		&p.ID,
		&p.PartnerID,
		&p.ProgramID,
		&p.InvoiceID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.Method,
		&p.StripePayoutID,
		&p.StripeTransferID,
		&p.PayPalBatchID,
		&p.FailureReason,
		&p.PeriodStart,
		&p.PeriodEnd,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPayouts(rows pgx.Rows) ([]*domain.Payout, error) {
	defer rows.Close()

	var payouts []*domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payouts, nil
}

// ListProcessing returns the partner's processing payouts for one rail,
// optionally restricted to a single invoice, oldest first.
func (r *payoutRepo) ListProcessing(ctx context.Context, partnerID string, method domain.PayoutMethod, invoiceID *string) ([]*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + `
		FROM payouts
		WHERE partner_id = $1
		  AND status = 'processing'
		  AND method = $2
		  AND ($3::text IS NULL OR invoice_id = $3)
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, partnerID, method, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing payouts: %w", err)
	}
	return collectPayouts(rows)
}

func (r *payoutRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + `
		FROM payouts
		WHERE invoice_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice payouts: %w", err)
	}
	return collectPayouts(rows)
}

// PendingSettlements lists every (partner, rail) pair that has processing
// payouts, optionally restricted to one invoice.
func (r *payoutRepo) PendingSettlements(ctx context.Context, invoiceID *string) ([]domain.PendingSettlement, error) {
	query := `
		SELECT DISTINCT partner_id, method
		FROM payouts
		WHERE status = 'processing'
		  AND ($1::text IS NULL OR invoice_id = $1)
		ORDER BY partner_id, method`

	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending settlements: %w", err)
	}
	defer rows.Close()

	var pending []domain.PendingSettlement
	for rows.Next() {
		var p domain.PendingSettlement
		if err := rows.Scan(&p.PartnerID, &p.Method); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkProcessed moves processing payouts to the terminal skipped state.
func (r *payoutRepo) MarkProcessed(ctx context.Context, payoutIDs []string) (int64, error) {
	query := `
		UPDATE payouts
		SET status = 'processed', updated_at = NOW()
		WHERE id = ANY($1) AND status = 'processing'`

	tag, err := r.db.Exec(ctx, query, payoutIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to mark payouts processed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func vendorColumn(method domain.PayoutMethod) (string, error) {
	switch method {
	case domain.PayoutMethodStablecoin:
		return "stripe_payout_id", nil
	case domain.PayoutMethodConnect:
		return "stripe_transfer_id", nil
	case domain.PayoutMethodPayPal:
		return "paypal_batch_id", nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMethod, method)
}

// MarkSent records a successful vendor call. The payout update only matches rows
// still in processing; if another run got there first the whole transaction
// rolls back with ErrConcurrentSettlement. Every commission on the payouts is
// marked paid unless it was refunded or canceled.
func (r *payoutRepo) MarkSent(ctx context.Context, upd domain.SentUpdate) error {
	col, err := vendorColumn(upd.Method)
	if err != nil {
		return err
	}

	payoutQuery := `
		UPDATE payouts
		SET status = 'sent', paid_at = $2, ` + col + ` = $3, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'processing'`

	commissionQuery := `
		UPDATE commissions
		SET status = 'paid', updated_at = NOW()
		WHERE payout_id = ANY($1) AND status NOT IN ('refunded', 'canceled')`

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, payoutQuery, upd.PayoutIDs, upd.PaidAt, upd.VendorRef)
		if err != nil {
			return fmt.Errorf("failed to mark payouts sent: %w", err)
		}
		if tag.RowsAffected() != int64(len(upd.PayoutIDs)) {
			return fmt.Errorf("%w: updated %d of %d", domain.ErrConcurrentSettlement, tag.RowsAffected(), len(upd.PayoutIDs))
		}

		if _, err := tx.Exec(ctx, commissionQuery, upd.PayoutIDs); err != nil {
			return fmt.Errorf("failed to mark commissions paid: %w", err)
		}
		return nil
	})
}

// ConfirmByVendorRef settles the outcome of sent payouts reported by the vendor.
// A failed payout releases its commissions: they go back to pending and are
// detached from the payout, so the next payout run can collect them again.
func (r *payoutRepo) ConfirmByVendorRef(ctx context.Context, vendorRef string, status domain.PayoutStatus, reason *string) (int64, error) {
	if status != domain.PayoutStatusCompleted && status != domain.PayoutStatusFailed {
		return 0, fmt.Errorf("%w: cannot confirm payout as %s", domain.ErrInvalidRequest, status)
	}

	payoutQuery := `
		UPDATE payouts
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE status = 'sent'
		  AND (stripe_payout_id = $1 OR stripe_transfer_id = $1 OR paypal_batch_id = $1)
		RETURNING id`

	releaseQuery := `
		UPDATE commissions
		SET status = 'pending', payout_id = NULL, updated_at = NOW()
		WHERE payout_id = ANY($1) AND status = 'paid'`

	var updated []string
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, payoutQuery, vendorRef, status, reason)
		if err != nil {
			return fmt.Errorf("failed to confirm payouts: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			updated = append(updated, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if len(updated) == 0 || status != domain.PayoutStatusFailed {
			return nil
		}
		if _, err := tx.Exec(ctx, releaseQuery, updated); err != nil {
			return fmt.Errorf("failed to release commissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(updated)), nil
}

// SentAt truncates to microseconds to match postgres timestamp precision.
func SentAt(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}
