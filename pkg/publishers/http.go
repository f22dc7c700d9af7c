package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/outage-bot/internal/logger"
	"github.com/samvad-hq/outage-bot/pkg/httpclient"
)

// webhookSink posts each event as JSON. The entry id doubles as the
// Idempotency-Key so a receiver can drop replays.
type webhookSink struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	return &webhookSink{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     logger.Ensure(log),
	}, nil
}

func (w *webhookSink) ID() string   { return w.id }
func (w *webhookSink) Type() string { return TypeHTTP }

func (w *webhookSink) Publish(ctx context.Context, evt Event) error {
	req := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Outage-Provider", evt.ProviderID).
		SetBody(evt)
	if evt.Entry.ID != "" {
		req.SetHeader("Idempotency-Key", evt.Entry.ID)
	}

	resp, err := req.Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
	}
	w.log.DebugObj("webhook delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": w.id,
		"entry_id":     evt.Entry.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func bodySnippet(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return strings.TrimSpace(string(body))
}
