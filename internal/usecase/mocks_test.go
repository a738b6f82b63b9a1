package usecase

import (
	"context"
	"sync"
	"testing"

	"partner-payouts/internal/cache"
	"partner-payouts/internal/domain"
	"partner-payouts/internal/notify"
	"partner-payouts/internal/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type mockPartnerRepo struct {
	GetByIDFunc        func(ctx context.Context, id string) (*domain.Partner, error)
	FindByEmailFunc    func(ctx context.Context, email string) (*domain.Partner, error)
	ClearRecipientFunc func(ctx context.Context, partnerID string, method domain.PayoutMethod) error
	DisablePayoutsFunc func(ctx context.Context, partnerID string) error
	SetPayPalEmailFunc func(ctx context.Context, partnerID, email string) error
	UpsertPlatformFunc func(ctx context.Context, p *domain.PartnerPlatform) error
}

func (m *mockPartnerRepo) GetByID(ctx context.Context, id string) (*domain.Partner, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockPartnerRepo) FindByEmail(ctx context.Context, email string) (*domain.Partner, error) {
	return m.FindByEmailFunc(ctx, email)
}

func (m *mockPartnerRepo) ClearRecipient(ctx context.Context, partnerID string, method domain.PayoutMethod) error {
	return m.ClearRecipientFunc(ctx, partnerID, method)
}

func (m *mockPartnerRepo) DisablePayouts(ctx context.Context, partnerID string) error {
	return m.DisablePayoutsFunc(ctx, partnerID)
}

func (m *mockPartnerRepo) SetPayPalEmail(ctx context.Context, partnerID, email string) error {
	return m.SetPayPalEmailFunc(ctx, partnerID, email)
}

func (m *mockPartnerRepo) UpsertPlatform(ctx context.Context, p *domain.PartnerPlatform) error {
	return m.UpsertPlatformFunc(ctx, p)
}

type mockPayoutRepo struct {
	ListProcessingFunc         func(ctx context.Context, partnerID string, method domain.PayoutMethod, invoiceID *string) ([]*domain.Payout, error)
	ListByInvoiceFunc          func(ctx context.Context, invoiceID string) ([]*domain.Payout, error)
	PendingSettlementsFunc     func(ctx context.Context, invoiceID *string) ([]domain.PendingSettlement, error)
	MarkProcessedFunc          func(ctx context.Context, payoutIDs []string) (int64, error)
	MarkSentFunc               func(ctx context.Context, upd domain.SentUpdate) error
	ConfirmByVendorRefFunc     func(ctx context.Context, vendorRef string, status domain.PayoutStatus, reason *string) (int64, error)
}

func (m *mockPayoutRepo) ListProcessing(ctx context.Context, partnerID string, method domain.PayoutMethod, invoiceID *string) ([]*domain.Payout, error) {
	return m.ListProcessingFunc(ctx, partnerID, method, invoiceID)
}

func (m *mockPayoutRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*domain.Payout, error) {
	return m.ListByInvoiceFunc(ctx, invoiceID)
}

func (m *mockPayoutRepo) PendingSettlements(ctx context.Context, invoiceID *string) ([]domain.PendingSettlement, error) {
	return m.PendingSettlementsFunc(ctx, invoiceID)
}

func (m *mockPayoutRepo) MarkProcessed(ctx context.Context, payoutIDs []string) (int64, error) {
	return m.MarkProcessedFunc(ctx, payoutIDs)
}

func (m *mockPayoutRepo) MarkSent(ctx context.Context, upd domain.SentUpdate) error {
	return m.MarkSentFunc(ctx, upd)
}

func (m *mockPayoutRepo) ConfirmByVendorRef(ctx context.Context, vendorRef string, status domain.PayoutStatus, reason *string) (int64, error) {
	return m.ConfirmByVendorRefFunc(ctx, vendorRef, status, reason)
}

type fakeRail struct {
	method domain.PayoutMethod
	state  provider.RecipientState
	result *provider.SendResult
	err    error

	sends []*provider.SendRequest
}

func (f *fakeRail) Method() domain.PayoutMethod { return f.method }

func (f *fakeRail) CheckRecipient(context.Context, string) (provider.RecipientState, error) {
	return f.state, nil
}

func (f *fakeRail) Send(_ context.Context, req *provider.SendRequest) (*provider.SendResult, error) {
	f.sends = append(f.sends, req)
	return f.result, f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	sent      []*domain.PayoutSentEvent
	confirmed []*domain.PayoutConfirmedEvent
	reconcile []*domain.ReconcileEvent
	err       error
}

func (f *fakePublisher) PublishPayoutSent(_ context.Context, e *domain.PayoutSentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return f.err
}

func (f *fakePublisher) PublishPayoutConfirmed(_ context.Context, e *domain.PayoutConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, e)
	return f.err
}

func (f *fakePublisher) PublishReconcile(_ context.Context, e *domain.ReconcileEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconcile = append(f.reconcile, e)
	return f.err
}

type fakeNotifier struct {
	sent []*notify.PayoutSent
	err  error
}

func (f *fakeNotifier) SendPayoutSent(_ context.Context, n *notify.PayoutSent) error {
	f.sent = append(f.sent, n)
	return f.err
}

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb, zap.NewNop()), mr
}

func strPtr(s string) *string { return &s }

func methodPtr(m domain.PayoutMethod) *domain.PayoutMethod { return &m }
