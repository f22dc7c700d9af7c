package providers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"github.com/samvad-hq/outage-bot/internal/domain"
)

// awsFetcher reads the AWS health RSS feed. AWS publishes <ttl>, which is
// honored as the next-check hint.
type awsFetcher struct {
	client HTTPClient
}

// NewAWSFetcher builds the AWS status projector.
func NewAWSFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &awsFetcher{client: client}
}

func (f *awsFetcher) ID() string { return ProviderTypeAWS }

func (f *awsFetcher) Fetch(ctx context.Context, cfg Provider) (Result, error) {
	raw, err := fetchFeed(ctx, f.client, cfg)
	if err != nil {
		return Result{}, err
	}

	parser := rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode %s rss: %w", cfg.ID, err)
	}

	entries := make([]domain.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		guid := ""
		if item.GUID != nil {
			guid = strings.TrimSpace(item.GUID.Value)
		}
		published := strings.TrimSpace(item.PubDate)
		iso := isoDate(item.PubDateParsed)
		entries = append(entries, domain.FeedEntry{
			ID:                   domain.Identify(published, iso, guid),
			PublishedAt:          published,
			AlternatePublishedAt: iso,
			GUID:                 guid,
			Title:                strings.TrimSpace(item.Title),
			Link:                 strings.TrimSpace(item.Link),
			Description:          item.Description,
		})
	}

	return Result{Entries: entries, NextCheck: parseTTL(feed.TTL)}, nil
}

// parseTTL converts an RSS <ttl> (minutes) into a duration; invalid or
// non-positive values yield zero.
func parseTTL(raw string) time.Duration {
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
