// Package announce turns a new feed entry into a channel line.
package announce

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/ircconn"
	"github.com/samvad-hq/outage-bot/internal/logger"
	"github.com/samvad-hq/outage-bot/pkg/providers"
	"github.com/samvad-hq/outage-bot/pkg/publishers"
)

// Sayer sends one line of text to a chat target.
type Sayer interface {
	Say(target, text string) error
}

// Renderer produces the single-line form of an entry.
type Renderer interface {
	Render(p providers.Provider, e domain.FeedEntry) string
}

// Subscribers returns the names to mention for a service.
type Subscribers interface {
	Subscribers(service string) []string
}

// EventMirror receives a copy of every announced entry.
type EventMirror interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Options configures a ChannelAnnouncer.
type Options struct {
	Client   Sayer
	Channel  string
	Renderer Renderer
	Notify   Subscribers
	Stats    *domain.Stats
	Mirror   EventMirror
	Log      logger.Logger
}

// ChannelAnnouncer says rendered entries to a single channel.
type ChannelAnnouncer struct {
	client   Sayer
	channel  string
	renderer Renderer
	notify   Subscribers
	stats    *domain.Stats
	mirror   EventMirror
	log      logger.Logger
}

// New validates opts and builds an announcer.
func New(opts Options) (*ChannelAnnouncer, error) {
	if opts.Client == nil {
		return nil, errors.New("announcer requires a chat client")
	}
	if strings.TrimSpace(opts.Channel) == "" {
		return nil, errors.New("announcer requires a channel")
	}
	if opts.Renderer == nil {
		return nil, errors.New("announcer requires a renderer")
	}
	return &ChannelAnnouncer{
		client:   opts.Client,
		channel:  opts.Channel,
		renderer: opts.Renderer,
		notify:   opts.Notify,
		stats:    opts.Stats,
		mirror:   opts.Mirror,
		log:      logger.Ensure(opts.Log),
	}, nil
}

// Lines renders the entry and mentions the subscribers of the provider, if
// any. Every line fits one chat message to the channel: a long entry is
// truncated, and mentions that do not fit after it move to their own lines.
func (a *ChannelAnnouncer) Lines(p providers.Provider, e domain.FeedEntry) []string {
	budget := ircconn.TextBudget(a.channel)
	line := ircconn.Truncate(a.renderer.Render(p, e), budget)

	var names []string
	if a.notify != nil {
		names = a.notify.Subscribers(p.ID)
	}
	if len(names) == 0 {
		return []string{line}
	}
	if cc := " (cc: " + strings.Join(names, ", ") + ")"; len(line)+len(cc) <= budget {
		return []string{line + cc}
	}
	return append([]string{line}, ircconn.PackList("cc: ", ", ", names, budget)...)
}

// Announce sends the entry to the channel and counts it. The mirror is
// best effort: its failures are logged only.
func (a *ChannelAnnouncer) Announce(ctx context.Context, p providers.Provider, e domain.FeedEntry) error {
	lines := a.Lines(p, e)
	for _, line := range lines {
		if err := a.client.Say(a.channel, line); err != nil {
			return fmt.Errorf("say %s entry %s: %w", p.ID, e.ID, err)
		}
	}
	a.stats.IncAnnounced()

	a.log.InfoObj("entry announced", "announcement", map[string]any{
		"provider_id": p.ID,
		"entry_id":    e.ID,
		"title":       e.Title,
		"lines":       len(lines),
	})

	if a.mirror == nil {
		return nil
	}
	if _, err := a.mirror.Publish(ctx, publishers.NewEvent(p.ID, p.Name, e, lines[0])); err != nil {
		a.log.WarnObj("event mirror failed", "mirror_error", map[string]any{
			"provider_id": p.ID,
			"entry_id":    e.ID,
			"error":       err.Error(),
		})
	}
	return nil
}
