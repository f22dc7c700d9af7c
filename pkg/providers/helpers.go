package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/outage-bot/pkg/httpclient"
)

// responseSnippet condenses an error body for logs: whitespace collapsed,
// at most 512 runes.
func responseSnippet(body []byte) string {
	const limit = 512
	text := strings.Join(strings.Fields(string(body)), " ")
	if text == "" {
		return "<empty>"
	}
	if r := []rune(text); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return text
}

func fetchFeed(ctx context.Context, client httpclient.Client, cfg Provider) ([]byte, error) {
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}

	resp, err := client.Get(ctx, cfg.SourceURL, Headers(cfg))
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", cfg.ID, err)
	}

	body := resp.Body()
	if !httpclient.OK(resp) {
		return nil, fmt.Errorf("%s feed returned status %d body: %s", cfg.ID, resp.StatusCode(), responseSnippet(body))
	}

	return body, nil
}

// isoDateLayout is ISO 8601 in UTC with milliseconds, e.g.
// 2024-01-01T00:00:00.000Z. Existing marker names were derived from it.
const isoDateLayout = "2006-01-02T15:04:05.000Z07:00"

// isoDate renders a parsed publish time the way the alternate timestamp is
// stored, empty when the feed date could not be parsed.
func isoDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoDateLayout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
