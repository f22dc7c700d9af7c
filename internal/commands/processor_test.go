package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/ircconn"
	"github.com/samvad-hq/outage-bot/internal/notify"
	"github.com/samvad-hq/outage-bot/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sayCall struct {
	target string
	text   string
}

type recordingClient struct {
	mu    sync.Mutex
	calls []sayCall
	err   error
}

func (r *recordingClient) Say(target, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, sayCall{target: target, text: text})
	return nil
}

const prefix = "!outage"

func channelMsg(sender, text string) domain.ChatMessage {
	return domain.ChatMessage{Sender: sender, Target: "#ops", Text: text}
}

func directMsg(sender, text string) domain.ChatMessage {
	return domain.ChatMessage{Sender: sender, Target: "outagebot", Text: text, Direct: true}
}

func newProcessor(t *testing.T, client Replier, suffix bool, cmds ...Command) *Processor {
	t.Helper()
	p, err := NewProcessor(Options{
		Registry:      NewRegistry(prefix, cmds...),
		Client:        client,
		Prefix:        prefix,
		CounterSuffix: suffix,
	})
	require.NoError(t, err)
	return p
}

func TestParseChannelAndDirectAreEquivalent(t *testing.T) {
	name, args, ok := Parse(channelMsg("alice", "!outage notify add svcX"), prefix)
	require.True(t, ok)
	assert.Equal(t, "notify", name)
	assert.Equal(t, []string{"add", "svcX"}, args)

	dName, dArgs, ok := Parse(directMsg("alice", "notify add svcX"), prefix)
	require.True(t, ok)
	assert.Equal(t, name, dName)
	assert.Equal(t, args, dArgs)
}

func TestParseIgnoresNonCommands(t *testing.T) {
	for _, msg := range []domain.ChatMessage{
		channelMsg("alice", "hello there"),
		channelMsg("alice", "!outage"),
		channelMsg("alice", "!outagex uptime"),
		directMsg("alice", "   "),
	} {
		_, _, ok := Parse(msg, prefix)
		assert.False(t, ok, "expected %q to be ignored", msg.Text)
	}
}

func TestHandlePrefixesSenderInChannel(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, true, Command{
		Name: "echo", Usage: "echo", Summary: "echo",
		Run: func(_ context.Context, req Request) ([]string, error) { return []string{"one", "two"}, nil },
	})

	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage echo")))
	assert.Equal(t, []sayCall{{"#ops", "alice: one"}, {"#ops", "two"}}, client.calls)
}

func TestHandleRedirectsPrivateCommandsWithCounter(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, true, Command{
		Name: "secret", Usage: "secret", Summary: "s", Private: true,
		Run: func(context.Context, Request) ([]string, error) { return []string{"a", "b"}, nil },
	})

	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage secret")))
	assert.Equal(t, []sayCall{{"alice", "a (1/2)"}, {"alice", "b (2/2)"}}, client.calls)
}

func TestHandleDirectWithoutCounter(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, false, Command{
		Name: "echo", Usage: "echo", Summary: "echo",
		Run: func(context.Context, Request) ([]string, error) { return []string{"a", "b"}, nil },
	})

	require.NoError(t, p.Handle(context.Background(), directMsg("bob", "ECHO")))
	assert.Equal(t, []sayCall{{"bob", "a"}, {"bob", "b"}}, client.calls)
}

func TestHandleAcknowledgesEmptyResult(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, true, Command{
		Name: "noop", Usage: "noop", Summary: "n",
		Run: func(context.Context, Request) ([]string, error) { return nil, nil },
	})

	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage noop")))
	assert.Equal(t, []sayCall{{"#ops", "alice: " + ackLine}}, client.calls)
}

func TestHandleNoSuchThingShowsHelp(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, false, Command{
		Name: "thing", Usage: "thing <x>", Summary: "does things", Subcommands: []string{"x"},
		Run: func(context.Context, Request) ([]string, error) { return nil, ErrNoSuchThing },
	})

	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "thing")))
	require.Len(t, client.calls, 2)
	assert.Equal(t, "usage: !outage thing <x> :: does things", client.calls[0].text)
	assert.Equal(t, "subcommands: x", client.calls[1].text)
}

func TestHandleContainsErrorsAndPanics(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, false,
		Command{Name: "fail", Usage: "fail", Summary: "f", Run: func(context.Context, Request) ([]string, error) {
			return nil, errors.New("disk full")
		}},
		Command{Name: "boom", Usage: "boom", Summary: "b", Run: func(context.Context, Request) ([]string, error) {
			panic("kaboom")
		}},
	)

	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "fail")))
	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "boom")))
	require.Len(t, client.calls, 2)
	assert.Equal(t, "error: disk full", client.calls[0].text)
	assert.Contains(t, client.calls[1].text, "kaboom")
}

func TestHandleIgnoresUnknownCommands(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, false)

	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage frobnicate")))
	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "just chatting")))
	assert.Empty(t, client.calls)
}

func TestHandleReturnsDeliveryError(t *testing.T) {
	p := newProcessor(t, &recordingClient{err: errors.New("disconnected")}, false)
	assert.Error(t, p.Handle(context.Background(), directMsg("alice", "help")))
}

func TestHelpListsCommandsPrivately(t *testing.T) {
	client := &recordingClient{}
	p := newProcessor(t, client, false, Builtins(Deps{})...)

	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage help")))
	require.NotEmpty(t, client.calls)
	assert.Equal(t, "alice", client.calls[0].target)
	assert.Equal(t, "commands: feeds, help, notify, uptime", client.calls[0].text)

	client.calls = nil
	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "help nope")))
	assert.Equal(t, []sayCall{{"alice", "no such command: nope"}}, client.calls)
}

func newNotify(t *testing.T, services ...string) *notify.Registry {
	t.Helper()
	reg, err := notify.Open(filepath.Join(t.TempDir(), "notify.json"), services)
	require.NoError(t, err)
	return reg
}

func TestNotifyListAllShowsEveryService(t *testing.T) {
	reg := newNotify(t, "aws", "gcp")
	require.NoError(t, reg.Subscribe("aws", "bob"))

	client := &recordingClient{}
	p := newProcessor(t, client, false, Builtins(Deps{Notify: reg})...)

	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "notify list all")))
	require.Len(t, client.calls, 2)
	assert.Equal(t, "aws: bob", client.calls[0].text)
	assert.Equal(t, "gcp: (none)", client.calls[1].text)
}

func TestNotifyAddDeleteUsesSender(t *testing.T) {
	reg := newNotify(t, "aws", "gcp")
	client := &recordingClient{}
	p := newProcessor(t, client, false, Builtins(Deps{Notify: reg})...)

	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage notify add all")))
	assert.Equal(t, []string{"alice"}, reg.Subscribers("aws"))
	assert.Equal(t, []string{"alice"}, reg.Subscribers("gcp"))
	assert.Equal(t, "alice: "+ackLine, client.calls[0].text)

	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "notify delete gcp")))
	assert.Empty(t, reg.Subscribers("gcp"))

	client.calls = nil
	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "notify add azure")))
	assert.Equal(t, []sayCall{{"alice", "no such service: azure"}}, client.calls)

	client.calls = nil
	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "notify frob aws")))
	require.NotEmpty(t, client.calls)
	assert.True(t, strings.HasPrefix(client.calls[0].text, "usage: !outage notify"))
}

func TestUptimeAndFeeds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := domain.NewStats(start)
	stats.IncAnnounced()
	stats.IncAnnounced()

	client := &recordingClient{}
	p := newProcessor(t, client, false, Builtins(Deps{
		Stats: stats,
		Feeds: []providers.Provider{{ID: "aws", Name: "AWS", SourceURL: "https://status.aws.amazon.com/rss/all.rss"}},
		Now:   func() time.Time { return start.Add(3 * time.Hour) },
	})...)

	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "uptime")))
	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0].text, "up since 2024-01-01T00:00:00Z")
	assert.Contains(t, client.calls[0].text, "2 entries announced")
	assert.NotContains(t, client.calls[0].text, "lag")

	client.calls = nil
	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage feeds")))
	assert.Equal(t, []sayCall{{"alice", "AWS (aws): https://status.aws.amazon.com/rss/all.rss"}}, client.calls)
}

func TestUptimeReportsHeartbeatLag(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lag := time.Duration(0)
	client := &recordingClient{}
	p := newProcessor(t, client, false, Builtins(Deps{
		Stats: domain.NewStats(start),
		Now:   func() time.Time { return start.Add(time.Minute) },
		Lag:   func() time.Duration { return lag },
	})...)

	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "uptime")))
	require.Len(t, client.calls, 1)
	assert.NotContains(t, client.calls[0].text, "lag", "no pong yet")

	lag = 42 * time.Millisecond
	client.calls = nil
	require.NoError(t, p.Handle(context.Background(), directMsg("alice", "uptime")))
	require.Len(t, client.calls, 1)
	assert.True(t, strings.HasSuffix(client.calls[0].text, "0 entries announced, lag 42ms"), client.calls[0].text)
}

func TestHandleWrapsLongRepliesToProtocolLimit(t *testing.T) {
	names := make([]string, 80)
	for i := range names {
		names[i] = fmt.Sprintf("subscriber%02d", i)
	}
	long := "aws: " + strings.Join(names, ", ")

	client := &recordingClient{}
	p := newProcessor(t, client, true, Command{
		Name: "list", Usage: "list", Summary: "l", Private: true,
		Run: func(context.Context, Request) ([]string, error) { return []string{long}, nil },
	})
	require.NoError(t, p.Handle(context.Background(), channelMsg("alice", "!outage list")))

	require.Greater(t, len(client.calls), 1)
	var joined []string
	for i, c := range client.calls {
		wire := "PRIVMSG " + c.target + " :" + c.text + "\r\n"
		assert.LessOrEqual(t, len(wire), ircconn.MaxLineBytes)
		suffix := fmt.Sprintf(" (%d/%d)", i+1, len(client.calls))
		require.True(t, strings.HasSuffix(c.text, suffix), "missing counter on %q", c.text)
		joined = append(joined, strings.TrimSuffix(c.text, suffix))
	}
	assert.Equal(t, long, strings.Join(joined, " "))
}
