package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/outage-bot/pkg/httpclient"
)

// Provider types with a dedicated projector. "rss" covers any other RSS or
// Atom status page.
const (
	ProviderTypeAWS   = "aws"
	ProviderTypeGCP   = "gcp"
	ProviderTypeAzure = "azure"
	ProviderTypeRSS   = "rss"
)

// fetcherTable resolves a provider to its projector, preferring an exact
// provider id over the provider type. It is immutable once built.
type fetcherTable struct {
	byID   map[string]Fetcher
	byType map[string]Fetcher
}

// NewFetcherRegistry builds a registry from type projectors plus optional
// per-provider overrides keyed by Fetcher.ID().
func NewFetcherRegistry(byType map[string]Fetcher, overrides ...Fetcher) FetcherRegistry {
	t := &fetcherTable{
		byID:   make(map[string]Fetcher, len(overrides)),
		byType: make(map[string]Fetcher, len(byType)),
	}
	for typ, f := range byType {
		if key := normalizeKey(typ); key != "" && f != nil {
			t.byType[key] = f
		}
	}
	for _, f := range overrides {
		if f == nil {
			continue
		}
		if key := normalizeKey(f.ID()); key != "" {
			t.byID[key] = f
		}
	}
	return t
}

// FetcherFor selects the projector for p.
func (t *fetcherTable) FetcherFor(p Provider) (Fetcher, error) {
	id := normalizeKey(p.ID)
	if id == "" {
		return nil, fmt.Errorf("provider id is empty")
	}
	if f, ok := t.byID[id]; ok {
		return f, nil
	}
	if f, ok := t.byType[normalizeKey(p.Type)]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for provider %q (type %q)", p.ID, p.Type)
}

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// DefaultHTTPClient is the feed client used when none is injected.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// DefaultFetcherRegistry wires the projector for every known provider type.
func DefaultFetcherRegistry(client HTTPClient) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return NewFetcherRegistry(map[string]Fetcher{
		ProviderTypeAWS:   NewAWSFetcher(client),
		ProviderTypeGCP:   NewGCPFetcher(client),
		ProviderTypeAzure: NewAzureFetcher(client),
		ProviderTypeRSS:   NewRSSFetcher(client),
	})
}
