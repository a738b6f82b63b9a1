// pkg/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are carried by dashboard and partner portal session tokens. A token
// is scoped to a workspace, a partner, or both.
type Claims struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	PartnerID   string `json:"partner_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with the shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (v *Verifier) ParseAndValidate(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.WorkspaceID == "" && claims.PartnerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign issues a token carrying the given scope, valid for ttl.
func (v *Verifier) Sign(scope Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      scope.UserID,
		WorkspaceID: scope.WorkspaceID,
		PartnerID:   scope.PartnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   scope.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
