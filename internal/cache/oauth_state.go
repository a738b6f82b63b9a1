// internal/cache/oauth_state.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"partner-payouts/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const OAuthStateTTL = 10 * time.Minute

func OAuthStateKey(provider, state string) string {
	return fmt.Sprintf("%s:oauth:state:%s", provider, state)
}

// NewOAuthState stores a fresh state token bound to the partner and returns it.
func (c *Cache) NewOAuthState(ctx context.Context, provider, partnerID string) (string, error) {
	state := ulid.Make().String()
	if err := c.client.Set(ctx, OAuthStateKey(provider, state), partnerID, OAuthStateTTL).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return state, nil
}

// ConsumeOAuthState returns the partner bound to a state token and deletes it,
// so each token can be redeemed once.
func (c *Cache) ConsumeOAuthState(ctx context.Context, provider, state string) (string, error) {
	if state == "" {
		return "", domain.ErrInvalidOAuthState
	}

	partnerID, err := c.client.GetDel(ctx, OAuthStateKey(provider, state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidOAuthState
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return partnerID, nil
}
