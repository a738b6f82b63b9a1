// internal/usecase/invoice.go
package usecase

import (
	"context"
	"fmt"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/repository"
)

type InvoiceUsecase struct {
	invoices repository.InvoiceRepository
	payouts  repository.PayoutRepository
}

func NewInvoiceUsecase(invoices repository.InvoiceRepository, payouts repository.PayoutRepository) *InvoiceUsecase {
	return &InvoiceUsecase{invoices: invoices, payouts: payouts}
}

// GetForWorkspace returns the invoice with its payouts. Invoices owned by
// another workspace are reported as not found.
func (uc *InvoiceUsecase) GetForWorkspace(ctx context.Context, workspaceID, invoiceID string) (*domain.InvoiceDetail, error) {
	inv, err := uc.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, domain.ErrNotFound)
	}

	detail := &domain.InvoiceDetail{Invoice: *inv}
	if inv.Type == domain.InvoiceTypePartnerPayout {
		detail.Payouts, err = uc.payouts.ListByInvoice(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}
