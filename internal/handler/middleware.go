// internal/handler/middleware.go
package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"partner-payouts/internal/domain"
	"partner-payouts/pkg/auth"
	"partner-payouts/pkg/response"
)

type ctxKey int

const claimsKey ctxKey = iota

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// ClaimsFrom returns the session claims stored by RequireWorkspace or RequirePartner.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func requireClaims(v *auth.Verifier, scoped func(*auth.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" {
				response.APIError(w, r, domain.NewUnauthorized("Missing Authorization header."))
				return
			}
			claims, err := v.ParseAndValidate(tok)
			if err != nil || !scoped(claims) {
				response.APIError(w, r, domain.NewUnauthorized("Invalid or expired session token."))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// RequireWorkspace admits dashboard sessions scoped to a workspace.
func RequireWorkspace(v *auth.Verifier) func(http.Handler) http.Handler {
	return requireClaims(v, func(c *auth.Claims) bool { return c.WorkspaceID != "" })
}

// RequirePartner admits partner portal sessions.
func RequirePartner(v *auth.Verifier) func(http.Handler) http.Handler {
	return requireClaims(v, func(c *auth.Claims) bool { return c.PartnerID != "" })
}

// RequireSecret admits internal callers presenting the shared bearer secret.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if secret == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(secret)) != 1 {
				response.Error(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
