// internal/usecase/settlement.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"partner-payouts/internal/cache"
	"partner-payouts/internal/domain"
	"partner-payouts/internal/fees"
	"partner-payouts/internal/metrics"
	"partner-payouts/internal/notify"
	"partner-payouts/internal/provider"
	"partner-payouts/internal/repository"

	"go.uber.org/zap"
)

const settlementLockTTL = 2 * time.Minute

type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, error)
}

type EventPublisher interface {
	PublishPayoutSent(ctx context.Context, event *domain.PayoutSentEvent) error
	PublishPayoutConfirmed(ctx context.Context, event *domain.PayoutConfirmedEvent) error
	PublishReconcile(ctx context.Context, event *domain.ReconcileEvent) error
}

type Notifier interface {
	SendPayoutSent(ctx context.Context, n *notify.PayoutSent) error
}

type SettleRequest struct {
	PartnerID string               `json:"partnerId"`
	InvoiceID *string              `json:"invoiceId,omitempty"`
	Method    *domain.PayoutMethod `json:"method,omitempty"`
}

// SettleResult reports what one settlement did. Skipped is set when the run
// ended without moving money.
type SettleResult struct {
	PartnerID string              `json:"partnerId"`
	Method    domain.PayoutMethod `json:"method,omitempty"`
	PayoutIDs []string            `json:"payoutIds,omitempty"`
	Gross     int64               `json:"gross"`
	Net       int64               `json:"net"`
	VendorRef string              `json:"vendorRef,omitempty"`
	PaidAt    *time.Time          `json:"paidAt,omitempty"`
	Skipped   domain.SkipReason   `json:"skipped,omitempty"`
}

type SettlementUsecase struct {
	partners  repository.PartnerRepository
	payouts   repository.PayoutRepository
	rails     provider.Registry
	fees      *fees.Calculator
	locker    Locker
	publisher EventPublisher
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewSettlementUsecase(
	partners repository.PartnerRepository,
	payouts repository.PayoutRepository,
	rails provider.Registry,
	calc *fees.Calculator,
	locker Locker,
	publisher EventPublisher,
	notifier Notifier,
	logger *zap.Logger,
) *SettlementUsecase {
	return &SettlementUsecase{
		partners:  partners,
		payouts:   payouts,
		rails:     rails,
		fees:      calc,
		locker:    locker,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Settle pays out every processing payout a partner has on one rail.
func (uc *SettlementUsecase) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	start := time.Now()
	result := &SettleResult{PartnerID: req.PartnerID}

	partner, err := uc.partners.GetByID(ctx, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("load partner: %w", err)
	}

	method, skip, err := uc.methodFor(partner, req.Method)
	if err != nil {
		return nil, err
	}
	result.Method = method
	if skip != domain.SkipNone {
		return uc.skip(result, skip), nil
	}

	rail, err := uc.rails.Get(method)
	if err != nil {
		return nil, err
	}

	lock, err := uc.locker.AcquireLock(ctx, cache.SettlementLockKey(partner.ID), settlementLockTTL)
	if err != nil {
		uc.logger.Warn("settlement lock not acquired",
			zap.String("partner_id", partner.ID),
			zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			uc.logger.Warn("failed to release settlement lock",
				zap.String("partner_id", partner.ID),
				zap.Error(err))
		}
	}()

	res, err := uc.settleLocked(ctx, partner, rail, req, result)
	outcome := "sent"
	switch {
	case err != nil:
		outcome = "failed"
	case res.Skipped != domain.SkipNone:
		outcome = "skipped"
	}
	metrics.SettlementsTotal.WithLabelValues(string(method), outcome).Inc()
	metrics.SettlementDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	return res, err
}

func (uc *SettlementUsecase) methodFor(partner *domain.Partner, requested *domain.PayoutMethod) (domain.PayoutMethod, domain.SkipReason, error) {
	if !partner.PayoutsEnabled() {
		uc.logger.Info("partner payouts not enabled, skipping",
			zap.String("partner_id", partner.ID))
		return "", domain.SkipPayoutsDisabled, nil
	}

	if requested != nil {
		if !requested.Valid() {
			return "", domain.SkipNone, fmt.Errorf("%w: %s", domain.ErrUnsupportedMethod, *requested)
		}
		if partner.AccountFor(*requested) == "" {
			uc.logger.Info("partner has no account on rail, skipping",
				zap.String("partner_id", partner.ID),
				zap.String("method", string(*requested)))
			return *requested, domain.SkipNoAccount, nil
		}
		return *requested, domain.SkipNone, nil
	}

	method, err := ResolveMethod(partner)
	if errors.Is(err, domain.ErrNoPayoutMethod) {
		uc.logger.Info("partner has no payout method, skipping",
			zap.String("partner_id", partner.ID))
		return "", domain.SkipNoAccount, nil
	}
	if err != nil {
		return "", domain.SkipNone, err
	}
	return method, domain.SkipNone, nil
}

func (uc *SettlementUsecase) settleLocked(ctx context.Context, partner *domain.Partner, rail provider.Rail, req SettleRequest, result *SettleResult) (*SettleResult, error) {
	method := rail.Method()
	account := partner.AccountFor(method)

	payouts, err := uc.payouts.ListProcessing(ctx, partner.ID, method, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("load processing payouts: %w", err)
	}
	if len(payouts) == 0 {
		return uc.skip(result, domain.SkipNoPayouts), nil
	}

	ids := make([]string, len(payouts))
	for i, p := range payouts {
		ids[i] = p.ID
		result.Gross += p.Amount
	}
	result.PayoutIDs = ids
	result.Net = uc.fees.NetPayout(method, result.Gross)

	if result.Net <= 0 {
		uc.logger.Warn("net payout is not positive, skipping",
			zap.String("partner_id", partner.ID),
			zap.Int64("gross", result.Gross),
			zap.Int64("net", result.Net))
		return uc.skip(result, domain.SkipNonPositiveAmount), nil
	}

	state, err := rail.CheckRecipient(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("check recipient: %w", err)
	}

	switch state {
	case provider.RecipientClosed:
		uc.logger.Warn("recipient account closed, clearing and skipping payouts",
			zap.String("partner_id", partner.ID),
			zap.String("method", string(method)),
			zap.Int("payouts", len(ids)))
		if err := uc.partners.ClearRecipient(ctx, partner.ID, method); err != nil {
			return nil, err
		}
		if _, err := uc.payouts.MarkProcessed(ctx, ids); err != nil {
			return nil, err
		}
		return uc.skip(result, domain.SkipRecipientClosed), nil

	case provider.RecipientCapabilityInactive:
		uc.logger.Error("recipient account missing capability, disabling payouts",
			zap.String("partner_id", partner.ID),
			zap.String("method", string(method)))
		if err := uc.partners.DisablePayouts(ctx, partner.ID); err != nil {
			return nil, err
		}
		if _, err := uc.payouts.MarkProcessed(ctx, ids); err != nil {
			return nil, err
		}
		return result, fmt.Errorf("partner %s: %w", partner.ID, domain.ErrRecipientCapabilityInactive)
	}

	currency := payouts[0].Currency
	invoiceID := ""
	if req.InvoiceID != nil {
		invoiceID = *req.InvoiceID
	}

	sent, err := rail.Send(ctx, &provider.SendRequest{
		Account:        account,
		Amount:         result.Net,
		Currency:       currency,
		IdempotencyKey: IdempotencyKey(req.InvoiceID, partner.ID, ids),
		PartnerID:      partner.ID,
		InvoiceID:      invoiceID,
		PayoutIDs:      ids,
		Description:    fmt.Sprintf("Payout for %d period(s)", len(ids)),
	})
	if err != nil {
		uc.logger.Error("rail send failed",
			zap.String("partner_id", partner.ID),
			zap.String("method", string(method)),
			zap.Int64("amount", result.Net),
			zap.Error(err))
		return nil, fmt.Errorf("send payout: %w", err)
	}
	if sent == nil || sent.ID == "" {
		uc.logger.Error("rail returned no transfer id",
			zap.String("partner_id", partner.ID),
			zap.String("method", string(method)))
		return nil, fmt.Errorf("partner %s: %w", partner.ID, domain.ErrMissingTransferID)
	}

	paidAt := repository.SentAt(uc.now())
	err = uc.payouts.MarkSent(ctx, domain.SentUpdate{
		PayoutIDs: ids,
		Method:    method,
		VendorRef: sent.ID,
		PaidAt:    paidAt,
	})
	if err != nil {
		// money has moved; the vendor ref is the only way to reconcile this by hand
		uc.logger.Error("failed to record sent payouts",
			zap.String("partner_id", partner.ID),
			zap.String("vendor_ref", sent.ID),
			zap.Strings("payout_ids", ids),
			zap.Error(err))
		return nil, fmt.Errorf("record sent payouts: %w", err)
	}

	result.VendorRef = sent.ID
	result.PaidAt = &paidAt
	metrics.PayoutAmountCents.WithLabelValues(string(method)).Add(float64(result.Net))

	uc.logger.Info("payouts sent",
		zap.String("partner_id", partner.ID),
		zap.String("method", string(method)),
		zap.String("vendor_ref", sent.ID),
		zap.Int("payouts", len(ids)),
		zap.Int64("gross", result.Gross),
		zap.Int64("net", result.Net))

	uc.afterSent(ctx, partner, result, currency, invoiceID)
	return result, nil
}

// afterSent publishes the sent event and emails the partner. Neither is
// allowed to fail the settlement.
func (uc *SettlementUsecase) afterSent(ctx context.Context, partner *domain.Partner, result *SettleResult, currency, invoiceID string) {
	if uc.publisher != nil {
		err := uc.publisher.PublishPayoutSent(ctx, &domain.PayoutSentEvent{
			PartnerID: partner.ID,
			InvoiceID: invoiceID,
			Method:    result.Method,
			PayoutIDs: result.PayoutIDs,
			Gross:     result.Gross,
			Net:       result.Net,
			Currency:  currency,
			VendorRef: result.VendorRef,
			SentAt:    *result.PaidAt,
		})
		if err != nil {
			uc.logger.Warn("failed to publish payout sent event",
				zap.String("partner_id", partner.ID),
				zap.Error(err))
		}
	}

	if uc.notifier != nil {
		err := uc.notifier.SendPayoutSent(ctx, &notify.PayoutSent{
			Partner:     partner,
			Method:      result.Method,
			Amount:      result.Net,
			Currency:    currency,
			PayoutCount: len(result.PayoutIDs),
			VendorRef:   result.VendorRef,
		})
		if err != nil {
			uc.logger.Warn("failed to send payout notification",
				zap.String("partner_id", partner.ID),
				zap.Error(err))
		}
	}
}

func (uc *SettlementUsecase) skip(result *SettleResult, reason domain.SkipReason) *SettleResult {
	result.Skipped = reason
	uc.logger.Info("settlement skipped",
		zap.String("partner_id", result.PartnerID),
		zap.String("method", string(result.Method)),
		zap.String("reason", string(reason)))
	return result
}

// SettleInvoice settles every partner and rail with processing payouts on the invoice.
func (uc *SettlementUsecase) SettleInvoice(ctx context.Context, invoiceID string) ([]*SettleResult, error) {
	return uc.settleMany(ctx, &invoiceID)
}

// SettleAll settles every partner and rail with processing payouts, invoice or not.
func (uc *SettlementUsecase) SettleAll(ctx context.Context) ([]*SettleResult, error) {
	return uc.settleMany(ctx, nil)
}

func (uc *SettlementUsecase) settleMany(ctx context.Context, invoiceID *string) ([]*SettleResult, error) {
	pending, err := uc.payouts.PendingSettlements(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	results := make([]*SettleResult, 0, len(pending))
	var errs []error
	for _, p := range pending {
		method := p.Method
		res, err := uc.Settle(ctx, SettleRequest{PartnerID: p.PartnerID, InvoiceID: invoiceID, Method: &method})
		if err != nil {
			errs = append(errs, fmt.Errorf("partner %s (%s): %w", p.PartnerID, p.Method, err))
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}

// ConfirmPayout records the vendor's final word on a sent payout batch.
func (uc *SettlementUsecase) ConfirmPayout(ctx context.Context, vendorRef string, succeeded bool, reason string) (int64, error) {
	status := domain.PayoutStatusCompleted
	var failure *string
	if !succeeded {
		status = domain.PayoutStatusFailed
		failure = &reason
	}

	n, err := uc.payouts.ConfirmByVendorRef(ctx, vendorRef, status, failure)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("vendor ref %s: %w", vendorRef, domain.ErrPayoutNotSent)
	}

	uc.logger.Info("payouts confirmed",
		zap.String("vendor_ref", vendorRef),
		zap.String("status", string(status)),
		zap.Int64("count", n))

	if uc.publisher != nil {
		err := uc.publisher.PublishPayoutConfirmed(ctx, &domain.PayoutConfirmedEvent{
			VendorRef: vendorRef,
			Status:    status,
			Count:     n,
		})
		if err != nil {
			uc.logger.Warn("failed to publish payout confirmed event",
				zap.String("vendor_ref", vendorRef),
				zap.Error(err))
		}
	}
	return n, nil
}
