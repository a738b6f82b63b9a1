// internal/usecase/cleanup.go
package usecase

import (
	"context"
	"sync"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/metrics"
	"partner-payouts/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	opDeletePartner = "delete_partner"
	opDeleteLinks   = "delete_links"

	targetLinkCache     = "link_cache"
	targetAnalytics     = "tinybird"
	targetStorage       = "r2"
	targetStripeAccount = "stripe_account"
)

type LinkCache interface {
	DeleteLinks(ctx context.Context, links []*domain.Link) error
}

type LinkAnalytics interface {
	RecordLinksDeleted(ctx context.Context, links []*domain.Link) error
}

type ObjectStore interface {
	DeleteURLs(ctx context.Context, urls []string) error
}

type AccountDeleter interface {
	DeleteAccount(ctx context.Context, account string) error
}

// CleanupResult lists what the relational delete removed and which follow-up
// targets failed and were queued for reconciliation.
type CleanupResult struct {
	Footprint *domain.PartnerFootprint `json:"-"`
	Links     int                      `json:"links"`
	Failed    []string                 `json:"failed,omitempty"`
}

type CleanupUsecase struct {
	repo      repository.CleanupRepository
	linkCache LinkCache
	analytics LinkAnalytics
	storage   ObjectStore
	accounts  AccountDeleter
	publisher EventPublisher
	logger    *zap.Logger
}

func NewCleanupUsecase(
	repo repository.CleanupRepository,
	linkCache LinkCache,
	analytics LinkAnalytics,
	storage ObjectStore,
	accounts AccountDeleter,
	publisher EventPublisher,
	logger *zap.Logger,
) *CleanupUsecase {
	return &CleanupUsecase{
		repo:      repo,
		linkCache: linkCache,
		analytics: analytics,
		storage:   storage,
		accounts:  accounts,
		publisher: publisher,
		logger:    logger,
	}
}

// DeletePartner deletes the partner's rows in one transaction, then clears
// caches, analytics, images and the connected account in parallel. Follow-up
// failures never undo the delete; they are published for reconciliation.
func (uc *CleanupUsecase) DeletePartner(ctx context.Context, partnerID string) (*CleanupResult, error) {
	fp, err := uc.repo.DeletePartner(ctx, partnerID)
	if err != nil {
		uc.logger.Error("failed to delete partner",
			zap.String("partner_id", partnerID),
			zap.Error(err))
		return nil, err
	}

	uc.logger.Info("partner deleted",
		zap.String("partner_id", partnerID),
		zap.Int("links", len(fp.Links)),
		zap.Int64("commissions", fp.Commissions),
		zap.Int64("payouts", fp.Payouts),
		zap.Int64("customers", fp.Customers),
		zap.Int64("enrollments", fp.Enrollments))

	images := linkImages(fp.Links)
	if fp.Partner.Image != nil {
		images = append(images, *fp.Partner.Image)
	}

	fan := uc.newFanOut(ctx, opDeletePartner, partnerID)
	fan.linkSideEffects(fp.Links, images)
	if fp.Partner.StripeConnectID != nil && uc.accounts != nil {
		account := *fp.Partner.StripeConnectID
		fan.run(targetStripeAccount, func(ctx context.Context) error {
			return uc.accounts.DeleteAccount(ctx, account)
		})
	}

	return &CleanupResult{Footprint: fp, Links: len(fp.Links), Failed: fan.wait()}, nil
}

// BulkDeleteLinks deletes workspace links and clears their caches, analytics
// and images the same way.
func (uc *CleanupUsecase) BulkDeleteLinks(ctx context.Context, workspaceID string, linkIDs []string) (*CleanupResult, error) {
	if len(linkIDs) == 0 {
		return &CleanupResult{}, nil
	}

	links, err := uc.repo.DeleteLinks(ctx, workspaceID, linkIDs)
	if err != nil {
		uc.logger.Error("failed to delete links",
			zap.String("workspace_id", workspaceID),
			zap.Error(err))
		return nil, err
	}

	uc.logger.Info("links deleted",
		zap.String("workspace_id", workspaceID),
		zap.Int("requested", len(linkIDs)),
		zap.Int("deleted", len(links)))

	fan := uc.newFanOut(ctx, opDeleteLinks, workspaceID)
	fan.linkSideEffects(links, linkImages(links))
	return &CleanupResult{Links: len(links), Failed: fan.wait()}, nil
}

func linkImages(links []*domain.Link) []string {
	var urls []string
	for _, l := range links {
		if l.Image != nil && *l.Image != "" {
			urls = append(urls, *l.Image)
		}
	}
	return urls
}

type fanOut struct {
	uc        *CleanupUsecase
	ctx       context.Context
	operation string
	subject   string
	group     errgroup.Group

	mu     sync.Mutex
	failed []string
}

func (uc *CleanupUsecase) newFanOut(ctx context.Context, operation, subject string) *fanOut {
	return &fanOut{
		uc:        uc,
		ctx:       context.WithoutCancel(ctx),
		operation: operation,
		subject:   subject,
	}
}

func (f *fanOut) linkSideEffects(links []*domain.Link, images []string) {
	if len(links) > 0 {
		if f.uc.linkCache != nil {
			f.run(targetLinkCache, func(ctx context.Context) error {
				return f.uc.linkCache.DeleteLinks(ctx, links)
			})
		}
		if f.uc.analytics != nil {
			f.run(targetAnalytics, func(ctx context.Context) error {
				return f.uc.analytics.RecordLinksDeleted(ctx, links)
			})
		}
	}
	if len(images) > 0 && f.uc.storage != nil {
		f.run(targetStorage, func(ctx context.Context) error {
			return f.uc.storage.DeleteURLs(ctx, images)
		})
	}
}

// run records a failure instead of returning it; every target runs to completion.
func (f *fanOut) run(target string, fn func(ctx context.Context) error) {
	f.group.Go(func() error {
		if err := fn(f.ctx); err != nil {
			f.fail(target, err)
		}
		return nil
	})
}

func (f *fanOut) fail(target string, err error) {
	f.mu.Lock()
	f.failed = append(f.failed, target)
	f.mu.Unlock()

	metrics.CleanupSideEffectFailures.WithLabelValues(f.operation, target).Inc()
	f.uc.logger.Warn("cleanup side effect failed",
		zap.String("operation", f.operation),
		zap.String("subject", f.subject),
		zap.String("target", target),
		zap.Error(err))

	if f.uc.publisher == nil {
		return
	}
	pubErr := f.uc.publisher.PublishReconcile(f.ctx, &domain.ReconcileEvent{
		Operation: f.operation,
		Subject:   f.subject,
		Target:    target,
		Error:     err.Error(),
	})
	if pubErr != nil {
		f.uc.logger.Error("failed to publish reconcile event",
			zap.String("subject", f.subject),
			zap.String("target", target),
			zap.Error(pubErr))
	}
}

func (f *fanOut) wait() []string {
	_ = f.group.Wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}
