// internal/cache/link_cache.go
package cache

import (
	"context"
	"fmt"
	"strings"

	"partner-payouts/internal/domain"
)

func LinkCacheKey(domainName, key string) string {
	return fmt.Sprintf("linkcache:%s:%s", strings.ToLower(domainName), strings.ToLower(key))
}

// DeleteLinks drops the redirect cache entries for the given links in one pipeline.
func (c *Cache) DeleteLinks(ctx context.Context, links []*domain.Link) error {
	if len(links) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, l := range links {
		pipe.Del(ctx, LinkCacheKey(l.Domain, l.Key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete link cache: %w", err)
	}
	return nil
}
