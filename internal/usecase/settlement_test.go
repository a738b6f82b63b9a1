package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"partner-payouts/internal/cache"
	"partner-payouts/internal/domain"
	"partner-payouts/internal/fees"
	"partner-payouts/internal/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

type settlementFixture struct {
	uc        *SettlementUsecase
	partner   *domain.Partner
	partners  *mockPartnerRepo
	payouts   *mockPayoutRepo
	rail      *fakeRail
	publisher *fakePublisher
	notifier  *fakeNotifier
	mr        *miniredis.Miniredis

	processing []*domain.Payout
	sentUpdate *domain.SentUpdate
	processed  []string
	cleared    domain.PayoutMethod
	disabled   bool
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	enabled := time.Now()
	f := &settlementFixture{
		partner: &domain.Partner{
			ID:                "pn_1",
			Name:              "Ada",
			Email:             strPtr("ada@example.com"),
			StripeRecipientID: strPtr("acct_recipient"),
			PayoutsEnabledAt:  &enabled,
		},
		rail: &fakeRail{
			method: domain.PayoutMethodStablecoin,
			state:  provider.RecipientReady,
			result: &provider.SendResult{ID: "obp_123", Status: "processing"},
		},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	for i, amt := range []int64{1000, 2000, 3000} {
		f.processing = append(f.processing, &domain.Payout{
			ID:        []string{"po_a", "po_b", "po_c"}[i],
			PartnerID: "pn_1",
			Amount:    amt,
			Currency:  "usd",
			Status:    domain.PayoutStatusProcessing,
			Method:    domain.PayoutMethodStablecoin,
		})
	}

	f.partners = &mockPartnerRepo{
		GetByIDFunc: func(_ context.Context, id string) (*domain.Partner, error) {
			if id != f.partner.ID {
				return nil, domain.ErrNotFound
			}
			return f.partner, nil
		},
		ClearRecipientFunc: func(_ context.Context, _ string, m domain.PayoutMethod) error {
			f.cleared = m
			return nil
		},
		DisablePayoutsFunc: func(context.Context, string) error {
			f.disabled = true
			return nil
		},
	}
	f.payouts = &mockPayoutRepo{
		ListProcessingFunc: func(_ context.Context, _ string, _ domain.PayoutMethod, _ *string) ([]*domain.Payout, error) {
			return f.processing, nil
		},
		MarkProcessedFunc: func(_ context.Context, ids []string) (int64, error) {
			f.processed = ids
			return int64(len(ids)), nil
		},
		MarkSentFunc: func(_ context.Context, upd domain.SentUpdate) error {
			f.sentUpdate = &upd
			return nil
		},
	}

	calc, err := fees.NewCalculator("0.02", 2500, "0")
	require.NoError(t, err)

	c, mr := newTestCache(t)
	f.mr = mr
	f.uc = NewSettlementUsecase(f.partners, f.payouts, provider.NewRegistry(f.rail), calc, c, f.publisher, f.notifier, zap.NewNop())
	f.uc.now = func() time.Time { return fixedNow }
	return f
}

func TestSettleStablecoinScenario(t *testing.T) {
	f := newSettlementFixture(t)

	res, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipNone, res.Skipped)
	assert.Equal(t, int64(6000), res.Gross)
	assert.Equal(t, int64(5880), res.Net)

	require.Len(t, f.rail.sends, 1)
	assert.Equal(t, int64(5880), f.rail.sends[0].Amount)
	assert.Equal(t, "acct_recipient", f.rail.sends[0].Account)

	require.NotNil(t, f.sentUpdate)
	assert.Equal(t, []string{"po_a", "po_b", "po_c"}, f.sentUpdate.PayoutIDs)
	assert.Equal(t, "obp_123", f.sentUpdate.VendorRef)
	assert.Equal(t, domain.PayoutMethodStablecoin, f.sentUpdate.Method)
	assert.Equal(t, fixedNow.Truncate(time.Microsecond), f.sentUpdate.PaidAt)

	require.Len(t, f.publisher.sent, 1)
	assert.Equal(t, "obp_123", f.publisher.sent[0].VendorRef)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, int64(5880), f.notifier.sent[0].Amount)

	assert.False(t, f.mr.Exists(cache.SettlementLockKey("pn_1")), "lock released")
}

func TestSettleIdempotencyKeyStable(t *testing.T) {
	f := newSettlementFixture(t)
	invoice := "inv_1"

	_, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1", InvoiceID: &invoice})
	require.NoError(t, err)
	_, err = f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1", InvoiceID: &invoice})
	require.NoError(t, err)

	require.Len(t, f.rail.sends, 2)
	assert.Equal(t, "inv_1-pn_1", f.rail.sends[0].IdempotencyKey)
	assert.Equal(t, f.rail.sends[0].IdempotencyKey, f.rail.sends[1].IdempotencyKey)
}

func TestSettleRecipientClosed(t *testing.T) {
	f := newSettlementFixture(t)
	f.rail.state = provider.RecipientClosed

	res, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipRecipientClosed, res.Skipped)
	assert.Equal(t, domain.PayoutMethodStablecoin, f.cleared)
	assert.Equal(t, []string{"po_a", "po_b", "po_c"}, f.processed)
	assert.Empty(t, f.rail.sends)
	assert.Nil(t, f.sentUpdate)
}

func TestSettleCapabilityInactiveFailsLoud(t *testing.T) {
	f := newSettlementFixture(t)
	f.rail.state = provider.RecipientCapabilityInactive

	_, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.ErrorIs(t, err, domain.ErrRecipientCapabilityInactive)
	assert.True(t, f.disabled)
	assert.Empty(t, f.cleared)
	assert.Len(t, f.processed, 3)
	assert.Empty(t, f.rail.sends)
}

func TestSettleNonPositiveNet(t *testing.T) {
	f := newSettlementFixture(t)
	f.processing = []*domain.Payout{{ID: "po_x", Amount: 0, Currency: "usd", Status: domain.PayoutStatusProcessing}}

	res, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipNonPositiveAmount, res.Skipped)
	assert.Empty(t, f.rail.sends)
	assert.Nil(t, f.processed)
	assert.Nil(t, f.sentUpdate)
}

func TestSettleMissingTransferID(t *testing.T) {
	f := newSettlementFixture(t)
	f.rail.result = &provider.SendResult{Status: "processing"}

	_, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.ErrorIs(t, err, domain.ErrMissingTransferID)
	assert.Nil(t, f.sentUpdate)
	assert.Empty(t, f.publisher.sent)
}

func TestSettleVendorError(t *testing.T) {
	f := newSettlementFixture(t)
	f.rail.result = nil
	f.rail.err = &provider.VendorError{Vendor: "stripe", Status: 400, Message: "insufficient funds"}

	_, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.Error(t, err)
	ve, ok := provider.AsVendorError(err)
	require.True(t, ok)
	assert.Equal(t, "insufficient funds", ve.Message)
	assert.Nil(t, f.sentUpdate)
}

func TestSettleLockHeld(t *testing.T) {
	f := newSettlementFixture(t)
	require.NoError(t, f.mr.Set(cache.SettlementLockKey("pn_1"), "other-run"))

	_, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.ErrorIs(t, err, domain.ErrSettlementInProgress)
	assert.Empty(t, f.rail.sends)
}

func TestSettleSkipsWithoutPayoutsEnabled(t *testing.T) {
	f := newSettlementFixture(t)
	f.partner.PayoutsEnabledAt = nil

	res, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipPayoutsDisabled, res.Skipped)
	assert.Empty(t, f.rail.sends)
}

func TestSettleSkipsWithoutAccountOnRequestedRail(t *testing.T) {
	f := newSettlementFixture(t)
	method := domain.PayoutMethodPayPal

	res, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1", Method: &method})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipNoAccount, res.Skipped)
}

func TestSettleNotificationFailureIsSwallowed(t *testing.T) {
	f := newSettlementFixture(t)
	f.notifier.err = errors.New("sendgrid down")
	f.publisher.err = errors.New("kafka down")

	res, err := f.uc.Settle(context.Background(), SettleRequest{PartnerID: "pn_1"})
	require.NoError(t, err)
	assert.Equal(t, "obp_123", res.VendorRef)
}

func TestSettleInvoiceJoinsErrors(t *testing.T) {
	f := newSettlementFixture(t)
	f.payouts.PendingSettlementsFunc = func(_ context.Context, invoiceID *string) ([]domain.PendingSettlement, error) {
		require.NotNil(t, invoiceID)
		return []domain.PendingSettlement{
			{PartnerID: "pn_1", Method: domain.PayoutMethodStablecoin},
			{PartnerID: "pn_missing", Method: domain.PayoutMethodStablecoin},
		}, nil
	}

	results, err := f.uc.SettleInvoice(context.Background(), "inv_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, results, 1)
	assert.Equal(t, "obp_123", results[0].VendorRef)
}

func TestSettleAllUsesRecordedRail(t *testing.T) {
	f := newSettlementFixture(t)
	f.partner.PayPalEmail = strPtr("ada@example.com")
	f.partner.DefaultPayoutMethod = methodPtr(domain.PayoutMethodPayPal)

	paypalRail := &fakeRail{
		method: domain.PayoutMethodPayPal,
		state:  provider.RecipientReady,
		result: &provider.SendResult{ID: "batch_1", Status: "PENDING"},
	}
	f.uc.rails = provider.NewRegistry(f.rail, paypalRail)

	var listed []domain.PayoutMethod
	f.payouts.ListProcessingFunc = func(_ context.Context, _ string, m domain.PayoutMethod, _ *string) ([]*domain.Payout, error) {
		listed = append(listed, m)
		if m == domain.PayoutMethodStablecoin {
			return f.processing, nil
		}
		return nil, nil
	}
	f.payouts.PendingSettlementsFunc = func(_ context.Context, invoiceID *string) ([]domain.PendingSettlement, error) {
		assert.Nil(t, invoiceID)
		return []domain.PendingSettlement{{PartnerID: "pn_1", Method: domain.PayoutMethodStablecoin}}, nil
	}

	results, err := f.uc.SettleAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.PayoutMethodStablecoin, results[0].Method)
	assert.Equal(t, domain.SkipNone, results[0].Skipped)
	assert.Equal(t, []domain.PayoutMethod{domain.PayoutMethodStablecoin}, listed)
	require.Len(t, f.rail.sends, 1)
	assert.Empty(t, paypalRail.sends)
}

func TestConfirmPayout(t *testing.T) {
	f := newSettlementFixture(t)
	var gotStatus domain.PayoutStatus
	var gotReason *string
	f.payouts.ConfirmByVendorRefFunc = func(_ context.Context, ref string, status domain.PayoutStatus, reason *string) (int64, error) {
		gotStatus, gotReason = status, reason
		if ref == "unknown" {
			return 0, nil
		}
		return 3, nil
	}

	n, err := f.uc.ConfirmPayout(context.Background(), "batch_1", false, "RECEIVER_UNREGISTERED")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, domain.PayoutStatusFailed, gotStatus)
	require.NotNil(t, gotReason)
	assert.Equal(t, "RECEIVER_UNREGISTERED", *gotReason)
	require.Len(t, f.publisher.confirmed, 1)

	_, err = f.uc.ConfirmPayout(context.Background(), "unknown", true, "")
	assert.ErrorIs(t, err, domain.ErrPayoutNotSent)
	assert.Equal(t, domain.PayoutStatusCompleted, gotStatus)
}
