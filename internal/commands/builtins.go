package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/notify"
	"github.com/samvad-hq/outage-bot/pkg/providers"
)

// Subscriptions is the part of the notification registry commands use.
type Subscriptions interface {
	Subscribe(service, who string) error
	Unsubscribe(service, who string) error
	List(service string) ([]string, error)
}

// Deps are the collaborators of the built-in commands.
type Deps struct {
	Stats  *domain.Stats
	Feeds  []providers.Provider
	Notify Subscriptions
	Now    func() time.Time
	// Lag reports the last heartbeat round trip; zero means unknown.
	Lag func() time.Duration
}

// Builtins returns uptime, feeds and notify; help comes with the registry.
func Builtins(d Deps) []Command {
	if d.Now == nil {
		d.Now = time.Now
	}
	return []Command{
		{
			Name:    "uptime",
			Usage:   "uptime",
			Summary: "time since start and number of announcements",
			Run:     d.uptime,
		},
		{
			Name:    "feeds",
			Usage:   "feeds",
			Summary: "list the watched feeds",
			Private: true,
			Run:     d.feeds,
		},
		{
			Name:        "notify",
			Usage:       "notify <add|delete|list> <service|all>",
			Summary:     "get mentioned when a service has news",
			Subcommands: []string{"add", "delete", "list"},
			Run:         d.notify,
		},
	}
}

func (d Deps) uptime(context.Context, Request) ([]string, error) {
	if d.Stats == nil {
		return nil, errors.New("stats unavailable")
	}
	started := d.Stats.StartedAt
	n := d.Stats.Announced()
	noun := "entries"
	if n == 1 {
		noun = "entry"
	}
	line := fmt.Sprintf("up since %s (%s), %s %s announced",
		started.UTC().Format(time.RFC3339),
		humanize.RelTime(started, d.Now(), "ago", "from now"),
		humanize.Comma(n), noun,
	)
	if d.Lag != nil {
		if lag := d.Lag(); lag > 0 {
			line += fmt.Sprintf(", lag %dms", lag.Milliseconds())
		}
	}
	return []string{line}, nil
}

func (d Deps) feeds(context.Context, Request) ([]string, error) {
	if len(d.Feeds) == 0 {
		return []string{"no feeds configured"}, nil
	}
	lines := make([]string, 0, len(d.Feeds))
	for _, f := range d.Feeds {
		lines = append(lines, fmt.Sprintf("%s (%s): %s", f.Name, f.ID, f.SourceURL))
	}
	return lines, nil
}

func (d Deps) notify(_ context.Context, req Request) ([]string, error) {
	if d.Notify == nil {
		return nil, errors.New("notifications unavailable")
	}
	if len(req.Args) < 2 {
		return nil, ErrNoSuchThing
	}
	sub, service := strings.ToLower(req.Args[0]), req.Args[1]

	var err error
	switch sub {
	case "add":
		err = d.Notify.Subscribe(service, req.Sender)
	case "delete":
		err = d.Notify.Unsubscribe(service, req.Sender)
	case "list":
		var lines []string
		lines, err = d.Notify.List(service)
		if err == nil {
			return lines, nil
		}
	default:
		return nil, ErrNoSuchThing
	}
	if errors.Is(err, notify.ErrNoSuchService) {
		return []string{"no such service: " + service}, nil
	}
	return nil, err
}
