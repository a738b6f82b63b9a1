// internal/streams/streams.go
package streams

import (
	"context"
	"fmt"
	"strconv"

	"partner-payouts/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	WorkspaceUsageStream  = "workspace:usage:updates"
	PartnerActivityStream = "partner:activity:updates"
)

// Client appends to and drains the append-only update streams.
type Client struct {
	redis *redis.Client
}

func NewClient(rdb *redis.Client) *Client {
	return &Client{redis: rdb}
}

func (c *Client) PublishUsage(ctx context.Context, u domain.UsageUpdate) (string, error) {
	return c.add(ctx, WorkspaceUsageStream, map[string]any{
		"workspaceId": u.WorkspaceID,
		"clicks":      u.Clicks,
		"links":       u.Links,
	})
}

func (c *Client) PublishActivity(ctx context.Context, a domain.ActivityUpdate) (string, error) {
	return c.add(ctx, PartnerActivityStream, map[string]any{
		"programId": a.ProgramID,
		"partnerId": a.PartnerID,
		"clicks":    a.Clicks,
		"leads":     a.Leads,
		"sales":     a.Sales,
		"saleCents": a.SaleCents,
	})
}

func (c *Client) add(ctx context.Context, stream string, values map[string]any) (string, error) {
	id, err := c.redis.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// Range reads up to count of the oldest entries.
func (c *Client) Range(ctx context.Context, stream string, count int64) ([]redis.XMessage, error) {
	msgs, err := c.redis.XRangeN(ctx, stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", stream, err)
	}
	return msgs, nil
}

func (c *Client) Delete(ctx context.Context, stream string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.redis.XDel(ctx, stream, ids...).Err(); err != nil {
		return fmt.Errorf("xdel %s: %w", stream, err)
	}
	return nil
}

func (c *Client) Len(ctx context.Context, stream string) (int64, error) {
	return c.redis.XLen(ctx, stream).Result()
}

// ParseUsage decodes one usage entry. Counters missing from the entry are zero.
func ParseUsage(msg redis.XMessage) (domain.UsageUpdate, error) {
	u := domain.UsageUpdate{WorkspaceID: stringField(msg, "workspaceId")}
	if u.WorkspaceID == "" {
		return u, fmt.Errorf("entry %s: missing workspaceId", msg.ID)
	}
	var err error
	if u.Clicks, err = intField(msg, "clicks"); err != nil {
		return u, err
	}
	if u.Links, err = intField(msg, "links"); err != nil {
		return u, err
	}
	return u, nil
}

func ParseActivity(msg redis.XMessage) (domain.ActivityUpdate, error) {
	a := domain.ActivityUpdate{
		ProgramID: stringField(msg, "programId"),
		PartnerID: stringField(msg, "partnerId"),
	}
	if a.ProgramID == "" || a.PartnerID == "" {
		return a, fmt.Errorf("entry %s: missing programId or partnerId", msg.ID)
	}

	fields := []struct {
		name string
		dst  *int64
	}{
		{"clicks", &a.Clicks},
		{"leads", &a.Leads},
		{"sales", &a.Sales},
		{"saleCents", &a.SaleCents},
	}
	for _, f := range fields {
		v, err := intField(msg, f.name)
		if err != nil {
			return a, err
		}
		*f.dst = v
	}
	return a, nil
}

func stringField(msg redis.XMessage, name string) string {
	if v, ok := msg.Values[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(msg redis.XMessage, name string) (int64, error) {
	s := stringField(msg, name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("entry %s: invalid %s %q", msg.ID, name, s)
	}
	return n, nil
}

// AggregateUsage folds entries into one update per workspace, in first-seen order.
func AggregateUsage(updates []domain.UsageUpdate) []domain.UsageUpdate {
	index := make(map[string]int)
	var out []domain.UsageUpdate
	for _, u := range updates {
		i, ok := index[u.WorkspaceID]
		if !ok {
			index[u.WorkspaceID] = len(out)
			out = append(out, u)
			continue
		}
		out[i].Clicks += u.Clicks
		out[i].Links += u.Links
	}
	return out
}

func AggregateActivity(updates []domain.ActivityUpdate) []domain.ActivityUpdate {
	type key struct{ program, partner string }
	index := make(map[key]int)
	var out []domain.ActivityUpdate
	for _, a := range updates {
		k := key{a.ProgramID, a.PartnerID}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, a)
			continue
		}
		out[i].Clicks += a.Clicks
		out[i].Leads += a.Leads
		out[i].Sales += a.Sales
		out[i].SaleCents += a.SaleCents
	}
	return out
}
