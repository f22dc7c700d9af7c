package providers

import (
	"context"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/pkg/httpclient"
)

// Result is one projected poll of a feed.
type Result struct {
	// Entries are normalized and identified, in feed order.
	Entries []domain.FeedEntry
	// NextCheck is the provider-suggested delay before the next poll; zero
	// means no hint was published.
	NextCheck time.Duration
}

// Fetcher retrieves a status feed and projects it into entries.
// Concrete implementations live in provider-specific files (e.g., aws.go).
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider) (Result, error)
}

// FetcherRegistry resolves the fetcher implementation for a given provider config.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client
