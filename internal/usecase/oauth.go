// internal/usecase/oauth.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"partner-payouts/internal/domain"
	"partner-payouts/internal/provider/google"
	"partner-payouts/internal/provider/paypal"
	"partner-payouts/internal/repository"

	"go.uber.org/zap"
)

const (
	ProviderPayPal = "paypal"
	ProviderGoogle = "google"
)

type StateStore interface {
	NewOAuthState(ctx context.Context, provider, partnerID string) (string, error)
	ConsumeOAuthState(ctx context.Context, provider, state string) (string, error)
}

type PayPalConnector interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*paypal.UserInfo, error)
}

type GoogleConnector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*google.GoogleUser, error)
}

// OAuthUsecase links a partner to an external account through a redirect flow.
type OAuthUsecase struct {
	states   StateStore
	partners repository.PartnerRepository
	paypal   PayPalConnector
	google   GoogleConnector
	logger   *zap.Logger
	now      func() time.Time
}

func NewOAuthUsecase(states StateStore, partners repository.PartnerRepository, pp PayPalConnector, g GoogleConnector, logger *zap.Logger) *OAuthUsecase {
	return &OAuthUsecase{
		states:   states,
		partners: partners,
		paypal:   pp,
		google:   g,
		logger:   logger,
		now:      time.Now,
	}
}

// Start issues a single-use state for the partner and returns the provider url.
func (uc *OAuthUsecase) Start(ctx context.Context, provider, partnerID string) (string, error) {
	if provider != ProviderPayPal && provider != ProviderGoogle {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	if _, err := uc.partners.GetByID(ctx, partnerID); err != nil {
		return "", err
	}

	state, err := uc.states.NewOAuthState(ctx, provider, partnerID)
	if err != nil {
		return "", err
	}

	if provider == ProviderPayPal {
		return uc.paypal.AuthorizeURL(state), nil
	}
	return uc.google.AuthCodeURL(state), nil
}

// Callback redeems the state and stores the connected account on the partner
// it was issued for.
func (uc *OAuthUsecase) Callback(ctx context.Context, provider, state, code string) (string, error) {
	if provider != ProviderPayPal && provider != ProviderGoogle {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}

	partnerID, err := uc.states.ConsumeOAuthState(ctx, provider, state)
	if err != nil {
		uc.logger.Warn("oauth callback with invalid state",
			zap.String("provider", provider),
			zap.Error(err))
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("missing authorization code: %w", domain.ErrInvalidRequest)
	}

	if provider == ProviderPayPal {
		return partnerID, uc.connectPayPal(ctx, partnerID, code)
	}
	return partnerID, uc.connectGoogle(ctx, partnerID, code)
}

func (uc *OAuthUsecase) connectPayPal(ctx context.Context, partnerID, code string) error {
	info, err := uc.paypal.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}
	if !info.EmailVerified {
		return fmt.Errorf("paypal account email is not verified: %w", domain.ErrInvalidRequest)
	}

	if err := uc.partners.SetPayPalEmail(ctx, partnerID, info.Email); err != nil {
		return err
	}

	uc.logger.Info("paypal account connected",
		zap.String("partner_id", partnerID),
		zap.String("paypal_user_id", info.UserID))
	return nil
}

func (uc *OAuthUsecase) connectGoogle(ctx context.Context, partnerID, code string) error {
	user, err := uc.google.Exchange(ctx, code)
	if err != nil {
		return err
	}
	if !user.EmailVerified {
		return fmt.Errorf("google account email is not verified: %w", domain.ErrInvalidRequest)
	}

	err = uc.partners.UpsertPlatform(ctx, &domain.PartnerPlatform{
		PartnerID:  partnerID,
		Platform:   ProviderGoogle,
		Identifier: user.Sub,
		Email:      user.Email,
		VerifiedAt: uc.now().UTC(),
	})
	if err != nil {
		return err
	}

	uc.logger.Info("google account verified",
		zap.String("partner_id", partnerID),
		zap.String("google_sub", user.Sub))
	return nil
}
