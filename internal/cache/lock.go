// internal/cache/lock.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"partner-payouts/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrLockNotOwned = errors.New("lock not owned by this token")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lock is a single-holder redis lock identified by a random token.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

func SettlementLockKey(partnerID string) string {
	return fmt.Sprintf("lock:settlement:%s", partnerID)
}

// AcquireLock takes the lock with SET NX. A lock held elsewhere returns
// domain.ErrSettlementInProgress.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := ulid.Make().String()

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSettlementInProgress
	}

	c.logger.Debug("lock acquired", zap.String("key", key), zap.Duration("ttl", ttl))
	return &Lock{client: c.client, key: key, token: token}, nil
}

// Release deletes the lock only if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}
