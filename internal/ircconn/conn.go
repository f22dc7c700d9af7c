package ircconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

// ErrReadyTimeout is returned when the server never completes registration.
var ErrReadyTimeout = errors.New("timed out waiting for irc registration")

// Client is the connected chat capability the bot consumes.
type Client interface {
	Join(channel string) error
	Say(target, text string) error
	Part(channel, reason string) error
	Ping(payload string) error
	OnPong(fn func(payload string))
	OnMessage(fn func(domain.ChatMessage))
	Nick() string
	Close()
}

// Conn is a Client backed by an ircevent connection.
type Conn struct {
	irc  *ircevent.Connection
	log  logger.Logger
	done chan struct{}
}

// Connect dials the server and returns once registration has completed and
// the channel join was sent. A zero readyTimeout waits until ctx is done.
func Connect(ctx context.Context, spec Spec, readyTimeout time.Duration, log logger.Logger) (*Conn, error) {
	log = logger.Ensure(log)

	tlsCfg, err := spec.TLSConfig()
	if err != nil {
		return nil, err
	}

	irc := &ircevent.Connection{
		Server:      net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)),
		Nick:        spec.Nick,
		User:        spec.Username,
		RealName:    spec.Gecos,
		UseTLS:      spec.TLS,
		TLSConfig:   tlsCfg,
		QuitMessage: spec.QuitMessage,
		Log:         logger.StdLog(),
	}
	// Callers fit lines with TextBudget; this only guards the socket.
	irc.AllowTruncation = true
	if mech := spec.SASLMechanism(); mech != "" {
		irc.UseSASL = true
		irc.SASLMech = mech
		irc.SASLLogin = spec.Account
		irc.SASLPassword = spec.Password
	}

	ready := make(chan struct{})
	var once sync.Once
	irc.AddConnectCallback(func(ircmsg.Message) {
		// Runs on every (re)registration, so the channel is rejoined after reconnects.
		if err := irc.Join(spec.Channel); err != nil {
			log.ErrorObj("channel join failed", "irc_error", map[string]any{
				"channel": spec.Channel,
				"error":   err.Error(),
			})
		}
		once.Do(func() { close(ready) })
	})
	irc.AddCallback("*", func(e ircmsg.Message) {
		log.DebugObj("irc event", "irc_event", map[string]any{
			"command": e.Command,
			"source":  e.Source,
			"params":  e.Params,
		})
	})

	log.InfoObj("irc connecting", "irc_connect", map[string]any{
		"server": irc.Server,
		"tls":    spec.TLS,
		"nick":   spec.Nick,
		"sasl":   irc.SASLMech,
	})
	if err := irc.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", irc.Server, err)
	}

	c := &Conn{irc: irc, log: log, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		irc.Loop()
	}()

	if err := awaitReady(ctx, ready, readyTimeout); err != nil {
		c.Close()
		return nil, err
	}
	log.InfoObj("irc registered", "irc_ready", map[string]any{
		"nick":    irc.CurrentNick(),
		"channel": spec.Channel,
	})
	return c, nil
}

// awaitReady blocks until ready is closed, ctx ends, or timeout elapses.
func awaitReady(ctx context.Context, ready <-chan struct{}, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-ready:
		return nil
	case <-expired:
		return fmt.Errorf("%w after %s", ErrReadyTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) Join(channel string) error     { return c.irc.Join(channel) }
func (c *Conn) Say(target, text string) error { return c.irc.Privmsg(target, text) }
func (c *Conn) Ping(payload string) error     { return c.irc.Send("PING", payload) }
func (c *Conn) Nick() string                  { return c.irc.CurrentNick() }

// Part leaves channel with an optional reason.
func (c *Conn) Part(channel, reason string) error {
	if reason == "" {
		return c.irc.Send("PART", channel)
	}
	return c.irc.Send("PART", channel, reason)
}

// OnPong calls fn with the echoed payload of every PONG.
func (c *Conn) OnPong(fn func(payload string)) {
	c.irc.AddCallback("PONG", func(e ircmsg.Message) {
		if len(e.Params) == 0 {
			return
		}
		fn(e.Params[len(e.Params)-1])
	})
}

// OnMessage calls fn for every PRIVMSG. Callbacks run on the connection's
// event goroutine and must not block.
func (c *Conn) OnMessage(fn func(domain.ChatMessage)) {
	c.irc.AddCallback("PRIVMSG", func(e ircmsg.Message) {
		if msg, ok := chatMessage(e); ok {
			fn(msg)
		}
	})
}

// Close quits and waits briefly for the event loop to stop.
func (c *Conn) Close() {
	c.irc.Quit()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.log.WarnObj("irc loop did not stop", "irc_close", c.irc.Server)
	}
}

func chatMessage(e ircmsg.Message) (domain.ChatMessage, bool) {
	if len(e.Params) < 2 {
		return domain.ChatMessage{}, false
	}
	target := e.Params[0]
	return domain.ChatMessage{
		Sender: nickOf(e.Source),
		Target: target,
		Text:   e.Params[1],
		Direct: !isChannel(target),
	}, true
}

// nickOf extracts the nick from a nick!user@host source.
func nickOf(source string) string {
	nick, _, _ := strings.Cut(source, "!")
	nick, _, _ = strings.Cut(nick, "@")
	return nick
}

func isChannel(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}
