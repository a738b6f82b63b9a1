// internal/repository/usage_repo.go
package repository

import (
	"context"
	"fmt"

	"partner-payouts/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UsageRepository interface {
	ApplyWorkspaceUsage(ctx context.Context, updates []domain.UsageUpdate) error
	ApplyPartnerActivity(ctx context.Context, updates []domain.ActivityUpdate) error
}

type usageRepo struct {
	db DB
}

func NewUsageRepository(db DB) UsageRepository {
	return &usageRepo{db: db}
}

// ApplyWorkspaceUsage adds pre-aggregated counters, one row per workspace.
func (r *usageRepo) ApplyWorkspaceUsage(ctx context.Context, updates []domain.UsageUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	query := `
		UPDATE workspaces
		SET usage = usage + $2, links_usage = links_usage + $3
		WHERE id = $1`

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, u := range updates {
			if _, err := tx.Exec(ctx, query, u.WorkspaceID, u.Clicks, u.Links); err != nil {
				return fmt.Errorf("failed to apply usage for workspace %s: %w", u.WorkspaceID, err)
			}
		}
		return nil
	})
}

func (r *usageRepo) ApplyPartnerActivity(ctx context.Context, updates []domain.ActivityUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	query := `
		UPDATE program_enrollments
		SET total_clicks = total_clicks + $3,
		    total_leads = total_leads + $4,
		    total_sales = total_sales + $5,
		    total_sale_amount = total_sale_amount + $6
		WHERE program_id = $1 AND partner_id = $2`

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, u := range updates {
			_, err := tx.Exec(ctx, query, u.ProgramID, u.PartnerID, u.Clicks, u.Leads, u.Sales, u.SaleCents)
			if err != nil {
				return fmt.Errorf("failed to apply activity for partner %s: %w", u.PartnerID, err)
			}
		}
		return nil
	})
}
