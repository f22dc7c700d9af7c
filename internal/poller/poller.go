// Package poller runs one independent polling loop per configured feed.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/flood"
	"github.com/samvad-hq/outage-bot/internal/logger"
	"github.com/samvad-hq/outage-bot/internal/storage"
	"github.com/samvad-hq/outage-bot/pkg/providers"
)

// Announcer delivers one new entry of a provider.
type Announcer interface {
	Announce(ctx context.Context, p providers.Provider, e domain.FeedEntry) error
}

// Options configures a Service.
type Options struct {
	Fetchers        providers.FetcherRegistry
	Store           storage.Store
	Announcer       Announcer
	DefaultInterval time.Duration
	Spacing         time.Duration
	SilentFirstRun  bool
	Log             logger.Logger
}

// Service coordinates polling across multiple providers.
type Service struct {
	fetchers        providers.FetcherRegistry
	store           storage.Store
	announcer       Announcer
	defaultInterval time.Duration
	spacing         time.Duration
	silentFirstRun  bool
	log             logger.Logger

	// after arms the wait between polls.
	after func(time.Duration) <-chan time.Time
}

// NewService wires a poller with the fetcher registry, dedup store and announcer.
func NewService(opts Options) (*Service, error) {
	if opts.Fetchers == nil {
		return nil, errors.New("poller requires a fetcher registry")
	}
	if opts.Store == nil {
		return nil, errors.New("poller requires a dedup store")
	}
	if opts.Announcer == nil {
		return nil, errors.New("poller requires an announcer")
	}
	if opts.DefaultInterval <= 0 {
		return nil, fmt.Errorf("invalid default interval %s", opts.DefaultInterval)
	}
	return &Service{
		fetchers:        opts.Fetchers,
		store:           opts.Store,
		announcer:       opts.Announcer,
		defaultInterval: opts.DefaultInterval,
		spacing:         opts.Spacing,
		silentFirstRun:  opts.SilentFirstRun,
		log:             logger.Ensure(opts.Log),
		after:           time.After,
	}, nil
}

// Run starts one loop per feed and blocks until ctx is cancelled and every
// loop has returned.
func (s *Service) Run(ctx context.Context, feeds []providers.Provider) error {
	if s == nil {
		return fmt.Errorf("poller service is not initialized")
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no providers configured for polling")
	}

	var wg sync.WaitGroup
	for _, p := range feeds {
		wg.Add(1)
		go func(p providers.Provider) {
			defer wg.Done()
			s.loop(ctx, p)
		}(p)
	}
	wg.Wait()
	return nil
}

// loop polls p until ctx is done. The first successful poll is silent when
// configured so.
func (s *Service) loop(ctx context.Context, p providers.Provider) {
	silent := s.silentFirstRun
	for {
		next, err := s.Poll(ctx, p, silent)
		if err != nil {
			s.log.ErrorObj("provider poll failed", "provider_error", map[string]any{
				"provider_id": p.ID,
				"error":       err.Error(),
				"retry_in":    next.String(),
			})
		} else {
			silent = false
		}

		select {
		case <-ctx.Done():
			s.log.DebugObj("provider loop exiting", "provider_id", p.ID)
			return
		case <-s.after(next):
		}
	}
}

// Poll runs one cycle for p: fetch, dedup, then announce the new entries in
// feed order through the flood gate. Entries are marked before they are
// queued. It returns the delay before the next cycle, which is the default
// interval unless the feed published a hint.
func (s *Service) Poll(ctx context.Context, p providers.Provider, silent bool) (time.Duration, error) {
	next := s.defaultInterval

	fetcher, err := s.fetchers.FetcherFor(p)
	if err != nil {
		return next, fmt.Errorf("resolve fetcher for provider %s: %w", p.ID, err)
	}

	res, err := fetcher.Fetch(ctx, p)
	if err != nil {
		return next, fmt.Errorf("fetch provider %s: %w", p.ID, err)
	}
	if res.NextCheck > 0 {
		next = res.NextCheck
	}

	fresh := s.markFresh(p, res.Entries)

	s.log.InfoObj("provider poll completed", "provider_result", map[string]any{
		"provider_id": p.ID,
		"entries":     len(res.Entries),
		"new":         len(fresh),
		"silent":      silent,
		"next_check":  next.String(),
	})

	if silent || len(fresh) == 0 {
		return next, nil
	}

	items := make([]flood.Item[struct{}], 0, len(fresh))
	for _, e := range fresh {
		entry := e
		items = append(items, flood.Action(func(ctx context.Context) error {
			return s.announcer.Announce(ctx, p, entry)
		}))
	}
	if _, err := flood.Run(ctx, s.spacing, items); err != nil {
		return next, fmt.Errorf("announce provider %s: %w", p.ID, err)
	}
	return next, nil
}

// markFresh returns the entries not seen before, marking each as it goes.
// Store failures skip the entry so that it is never announced twice.
func (s *Service) markFresh(p providers.Provider, entries []domain.FeedEntry) []domain.FeedEntry {
	fresh := make([]domain.FeedEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			e.ID = domain.Identify(e.PublishedAt, e.AlternatePublishedAt, e.GUID)
		}

		seen, err := s.store.HasAnnounced(p.ID, e.ID)
		if err != nil {
			s.log.ErrorObj("dedup lookup failed", "dedup_error", map[string]any{
				"provider_id": p.ID,
				"entry_id":    e.ID,
				"error":       err.Error(),
			})
			continue
		}
		if seen {
			s.log.DebugObj("entry already announced", "entry", map[string]any{
				"provider_id": p.ID,
				"entry_id":    e.ID,
			})
			continue
		}

		if err := s.store.MarkAnnounced(p.ID, e.ID, e); err != nil {
			s.log.ErrorObj("dedup mark failed", "dedup_error", map[string]any{
				"provider_id": p.ID,
				"entry_id":    e.ID,
				"error":       err.Error(),
			})
			continue
		}
		fresh = append(fresh, e)
	}
	return fresh
}
