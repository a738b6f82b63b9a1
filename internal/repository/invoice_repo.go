// internal/repository/invoice_repo.go
package repository

import (
	"context"

	"partner-payouts/internal/domain"
)

type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
}

type WorkspaceRepository interface {
	ListByUserEmail(ctx context.Context, email string) ([]*domain.Workspace, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepository(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `
		SELECT id, workspace_id, program_id, number, type, status, amount, fee, total,
		       payment_method, stripe_charge_metadata, created_at, paid_at
		FROM invoices
		WHERE id = $1`

	var inv domain.Invoice
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inv.ID,
		&inv.WorkspaceID,
		&inv.ProgramID,
		&inv.Number,
		&inv.Type,
		&inv.Status,
		&inv.Amount,
		&inv.Fee,
		&inv.Total,
		&inv.PaymentMethod,
		&inv.StripeChargeMetadata,
		&inv.CreatedAt,
		&inv.PaidAt,
	)
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	return &inv, nil
}

type workspaceRepo struct {
	db DB
}

func NewWorkspaceRepository(db DB) WorkspaceRepository {
	return &workspaceRepo{db: db}
}

func (r *workspaceRepo) ListByUserEmail(ctx context.Context, email string) ([]*domain.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.slug, w.stripe_id, w.plan, w.usage, w.usage_limit, w.links_usage
		FROM workspaces w
		JOIN workspace_users wu ON wu.workspace_id = w.id
		JOIN users u ON u.id = wu.user_id
		WHERE LOWER(u.email) = LOWER($1)
		ORDER BY w.created_at ASC
		LIMIT 10`

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &w.StripeID, &w.Plan, &w.Usage, &w.UsageLimit, &w.LinksUsage); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}
