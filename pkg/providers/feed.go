package providers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/outage-bot/internal/domain"
)

// universalFetcher parses RSS or Atom through gofeed and identifies entries
// from (published, iso date, guid/id). GCP, Azure and plain RSS feeds share it.
type universalFetcher struct {
	id     string
	client HTTPClient
}

func newUniversalFetcher(id string, client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &universalFetcher{id: id, client: client}
}

// NewGCPFetcher builds the Google Cloud status (Atom) projector.
func NewGCPFetcher(client HTTPClient) Fetcher { return newUniversalFetcher(ProviderTypeGCP, client) }

// NewAzureFetcher builds the Azure status (RSS) projector.
func NewAzureFetcher(client HTTPClient) Fetcher {
	return newUniversalFetcher(ProviderTypeAzure, client)
}

// NewRSSFetcher builds a projector for any RSS/Atom feed without provider quirks.
func NewRSSFetcher(client HTTPClient) Fetcher { return newUniversalFetcher(ProviderTypeRSS, client) }

func (f *universalFetcher) ID() string { return f.id }

func (f *universalFetcher) Fetch(ctx context.Context, cfg Provider) (Result, error) {
	raw, err := fetchFeed(ctx, f.client, cfg)
	if err != nil {
		return Result{}, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode %s feed: %w", cfg.ID, err)
	}

	entries := make([]domain.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, projectItem(item))
	}
	return Result{Entries: entries}, nil
}

// projectItem normalizes a gofeed item. Atom entries without <published> fall
// back to <updated>, matching how the feed readers present them.
func projectItem(item *gofeed.Item) domain.FeedEntry {
	published := firstNonEmpty(item.Published, item.Updated)
	parsed := item.PublishedParsed
	if parsed == nil {
		parsed = item.UpdatedParsed
	}
	iso := isoDate(parsed)
	guid := strings.TrimSpace(item.GUID)

	return domain.FeedEntry{
		ID:                   domain.Identify(published, iso, guid),
		PublishedAt:          published,
		AlternatePublishedAt: iso,
		GUID:                 guid,
		Title:                strings.TrimSpace(item.Title),
		Link:                 strings.TrimSpace(item.Link),
		Description:          firstNonEmpty(item.Description, item.Content),
	}
}
