package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/flood"
	"github.com/samvad-hq/outage-bot/internal/ircconn"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

const ackLine = "done."

// Replier sends one line to a chat target.
type Replier interface {
	Say(target, text string) error
}

// Options configures a Processor.
type Options struct {
	Registry      *Registry
	Client        Replier
	Prefix        string
	Spacing       time.Duration
	CounterSuffix bool
	Log           logger.Logger
}

// Processor turns inbound chat messages into command replies.
type Processor struct {
	registry      *Registry
	client        Replier
	prefix        string
	spacing       time.Duration
	counterSuffix bool
	log           logger.Logger
}

// NewProcessor builds a processor.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Registry == nil {
		return nil, errors.New("command processor requires a registry")
	}
	if opts.Client == nil {
		return nil, errors.New("command processor requires a chat client")
	}
	if strings.TrimSpace(opts.Prefix) == "" {
		return nil, errors.New("command processor requires a prefix")
	}
	return &Processor{
		registry:      opts.Registry,
		client:        opts.Client,
		prefix:        strings.TrimSpace(opts.Prefix),
		spacing:       opts.Spacing,
		counterSuffix: opts.CounterSuffix,
		log:           logger.Ensure(opts.Log),
	}, nil
}

// Parse extracts the command name and arguments. Direct messages use the
// first token as the name; channel messages must start with prefix and use
// the second token.
func Parse(msg domain.ChatMessage, prefix string) (string, []string, bool) {
	fields := strings.Fields(msg.Text)
	if msg.Direct {
		if len(fields) == 0 {
			return "", nil, false
		}
		return strings.ToLower(fields[0]), fields[1:], true
	}
	if len(fields) < 2 || fields[0] != prefix {
		return "", nil, false
	}
	return strings.ToLower(fields[1]), fields[2:], true
}

// Handle runs the command in msg, if any, and sends the reply through the
// flood gate. Messages that are not commands and unknown command names are
// ignored.
func (p *Processor) Handle(ctx context.Context, msg domain.ChatMessage) error {
	name, args, ok := Parse(msg, p.prefix)
	if !ok {
		return nil
	}
	cmd, found := p.registry.Lookup(name)
	if !found {
		p.log.DebugObj("unknown command ignored", "command", map[string]any{
			"name":   name,
			"sender": msg.Sender,
		})
		return nil
	}

	req := Request{Sender: msg.Sender, Args: args, Direct: msg.Direct}
	lines, err := p.invoke(ctx, cmd, req)
	switch {
	case errors.Is(err, ErrNoSuchThing):
		lines = p.registry.Help(cmd.Name)
	case err != nil:
		p.log.ErrorObj("command failed", "command_error", map[string]any{
			"name":   cmd.Name,
			"sender": msg.Sender,
			"error":  err.Error(),
		})
		lines = []string{"error: " + err.Error()}
	case len(lines) == 0:
		lines = []string{ackLine}
	}

	target, lines := p.address(msg, cmd, lines)
	items := make([]flood.Item[struct{}], 0, len(lines))
	for _, line := range lines {
		text := line
		items = append(items, flood.Action(func(context.Context) error {
			return p.client.Say(target, text)
		}))
	}
	if _, err := flood.Run(ctx, p.spacing, items); err != nil {
		return fmt.Errorf("reply to %s: %w", cmd.Name, err)
	}
	return nil
}

// invoke runs the handler, turning a panic into an error.
func (p *Processor) invoke(ctx context.Context, cmd Command, req Request) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.Name, r)
		}
	}()
	return cmd.Run(ctx, req)
}

// counterReserve is room kept for an " (i/n)" suffix.
const counterReserve = len(" (999/999)")

// address picks the reply target and decorates the lines, wrapping each so it
// fits one chat message. In-channel replies name the sender on the first
// line; direct replies may carry an (i/n) suffix.
func (p *Processor) address(msg domain.ChatMessage, cmd Command, lines []string) (string, []string) {
	out := make([]string, len(lines))
	copy(out, lines)

	if !msg.Direct && !cmd.Private {
		out[0] = msg.Sender + ": " + out[0]
		return msg.Target, wrapAll(out, ircconn.TextBudget(msg.Target))
	}

	budget := ircconn.TextBudget(msg.Sender)
	if p.counterSuffix {
		budget -= counterReserve
	}
	out = wrapAll(out, budget)
	if p.counterSuffix && len(out) > 1 {
		for i := range out {
			out[i] = fmt.Sprintf("%s (%d/%d)", out[i], i+1, len(out))
		}
	}
	return msg.Sender, out
}

func wrapAll(lines []string, limit int) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, ircconn.Wrap(l, limit)...)
	}
	return out
}
