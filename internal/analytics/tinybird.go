// internal/analytics/tinybird.go
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"partner-payouts/config"
	"partner-payouts/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const linksMetadataDatasource = "dub_links_metadata"

// Tinybird appends link metadata rows to the analytics events api.
type Tinybird struct {
	client *resty.Client
	logger *zap.Logger
}

func NewTinybird(cfg config.TinybirdConfig, logger *zap.Logger) *Tinybird {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(10 * time.Second)
	return &Tinybird{client: client, logger: logger}
}

type linkMetadata struct {
	LinkID      string `json:"link_id"`
	Domain      string `json:"domain"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	WorkspaceID string `json:"workspace_id"`
	ProgramID   string `json:"program_id"`
	PartnerID   string `json:"partner_id"`
	Deleted     bool   `json:"deleted"`
	Timestamp   string `json:"timestamp"`
}

// RecordLinksDeleted marks every link as deleted so it drops out of analytics.
func (t *Tinybird) RecordLinksDeleted(ctx context.Context, links []*domain.Link) error {
	if len(links) == 0 {
		return nil
	}

	now := time.Now().UTC().Format("2006-01-02 15:04:05.000")
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, l := range links {
		row := linkMetadata{
			LinkID:      l.ID,
			Domain:      l.Domain,
			Key:         l.Key,
			URL:         l.URL,
			WorkspaceID: deref(l.WorkspaceID),
			ProgramID:   deref(l.ProgramID),
			PartnerID:   deref(l.PartnerID),
			Deleted:     true,
			Timestamp:   now,
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode link %s: %w", l.ID, err)
		}
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParam("name", linksMetadataDatasource).
		SetHeader("Content-Type", "application/x-ndjson").
		SetBody(body.Bytes()).
		Post("/v0/events")
	if err != nil {
		return fmt.Errorf("tinybird request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("tinybird returned %d: %s", resp.StatusCode(), resp.String())
	}

	t.logger.Debug("links recorded as deleted", zap.Int("count", len(links)))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
