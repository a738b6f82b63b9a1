// internal/provider/google/google.go
package google

import (
	"context"
	"errors"
	"fmt"

	"partner-payouts/config"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

type GoogleUser struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
}

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Connector runs the authorization code flow used to verify a partner's
// Google account.
type Connector struct {
	oauth    *oauth2.Config
	validate validateFunc
}

func NewConnector(cfg config.GoogleConfig) *Connector {
	return &Connector{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleoauth.Endpoint,
		},
		validate: idtoken.Validate,
	}
}

func (c *Connector) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for tokens and verifies the returned id token
// against our client id.
func (c *Connector) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, errors.New("google token response missing id_token")
	}

	payload, err := c.validate(ctx, raw, c.oauth.ClientID)
	if err != nil {
		return nil, fmt.Errorf("validate google id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	name, _ := payload.Claims["name"].(string)

	return &GoogleUser{
		Sub:           payload.Subject,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
	}, nil
}
