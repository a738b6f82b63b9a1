// internal/repository/cleanup_repo.go
package repository

import (
	"context"
	"fmt"
	"sort"

	"partner-payouts/internal/domain"

	"github.com/jackc/pgx/v5"
)

type CleanupRepository interface {
	DeletePartner(ctx context.Context, partnerID string) (*domain.PartnerFootprint, error)
	DeleteLinks(ctx context.Context, workspaceID string, linkIDs []string) ([]*domain.Link, error)
}

type cleanupRepo struct {
	db DB
}

func NewCleanupRepository(db DB) CleanupRepository {
	return &cleanupRepo{db: db}
}

const linkReturning = `RETURNING id, domain, key, url, image, workspace_id, program_id, partner_id`

// DeletePartner removes a partner and every dependent row in one transaction.
// Children go first so foreign keys never see a dangling parent.
func (r *cleanupRepo) DeletePartner(ctx context.Context, partnerID string) (*domain.PartnerFootprint, error) {
	fp := &domain.PartnerFootprint{}

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		p, err := scanPartner(tx.QueryRow(ctx,
			`SELECT `+partnerColumns+` FROM partners WHERE id = $1 FOR UPDATE`, partnerID))
		if err != nil {
			return notFound(err, "partner")
		}
		fp.Partner = p

		tag, err := tx.Exec(ctx, `DELETE FROM commissions WHERE partner_id = $1`, partnerID)
		if err != nil {
			return fmt.Errorf("failed to delete commissions: %w", err)
		}
		fp.Commissions = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM payouts WHERE partner_id = $1`, partnerID)
		if err != nil {
			return fmt.Errorf("failed to delete payouts: %w", err)
		}
		fp.Payouts = tag.RowsAffected()

		tag, err = tx.Exec(ctx,
			`DELETE FROM customers WHERE link_id IN (SELECT id FROM links WHERE partner_id = $1)`, partnerID)
		if err != nil {
			return fmt.Errorf("failed to delete customers: %w", err)
		}
		fp.Customers = tag.RowsAffected()

		fp.Links, err = deleteLinksReturning(ctx, tx, `DELETE FROM links WHERE partner_id = $1 `+linkReturning, partnerID)
		if err != nil {
			return err
		}
		if err := decrementLinksUsage(ctx, tx, fp.Links); err != nil {
			return err
		}

		tag, err = tx.Exec(ctx, `DELETE FROM program_enrollments WHERE partner_id = $1`, partnerID)
		if err != nil {
			return fmt.Errorf("failed to delete program enrollments: %w", err)
		}
		fp.Enrollments = tag.RowsAffected()

		if _, err := tx.Exec(ctx, `DELETE FROM partners WHERE id = $1`, partnerID); err != nil {
			return fmt.Errorf("failed to delete partner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fp, nil
}

// DeleteLinks removes links owned by the workspace and returns what was deleted.
// Links belonging to other workspaces are ignored.
func (r *cleanupRepo) DeleteLinks(ctx context.Context, workspaceID string, linkIDs []string) ([]*domain.Link, error) {
	var links []*domain.Link
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		links, err = deleteLinksReturning(ctx, tx,
			`DELETE FROM links WHERE workspace_id = $1 AND id = ANY($2) `+linkReturning, workspaceID, linkIDs)
		if err != nil {
			return err
		}
		return decrementLinksUsage(ctx, tx, links)
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

func deleteLinksReturning(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]*domain.Link, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete links: %w", err)
	}
	defer rows.Close()

	var links []*domain.Link
	for rows.Next() {
		var l domain.Link
		if err := rows.Scan(&l.ID, &l.Domain, &l.Key, &l.URL, &l.Image, &l.WorkspaceID, &l.ProgramID, &l.PartnerID); err != nil {
			return nil, fmt.Errorf("failed to scan deleted link: %w", err)
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func decrementLinksUsage(ctx context.Context, tx pgx.Tx, links []*domain.Link) error {
	counts := make(map[string]int64)
	for _, l := range links {
		if l.WorkspaceID != nil {
			counts[*l.WorkspaceID]++
		}
	}

	// stable order keeps row locks consistent across concurrent deletes
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		_, err := tx.Exec(ctx,
			`UPDATE workspaces SET links_usage = GREATEST(links_usage - $2, 0) WHERE id = $1`, id, counts[id])
		if err != nil {
			return fmt.Errorf("failed to update links usage: %w", err)
		}
	}
	return nil
}
