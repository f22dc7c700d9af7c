package announce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/ircconn"
	"github.com/samvad-hq/outage-bot/internal/render"
	"github.com/samvad-hq/outage-bot/pkg/providers"
	"github.com/samvad-hq/outage-bot/pkg/publishers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSayer struct {
	targets []string
	lines   []string
	err     error
}

func (r *recordingSayer) Say(target, text string) error {
	if r.err != nil {
		return r.err
	}
	r.targets = append(r.targets, target)
	r.lines = append(r.lines, text)
	return nil
}

type staticSubscribers map[string][]string

func (s staticSubscribers) Subscribers(service string) []string { return s[service] }

type recordingMirror struct {
	events []publishers.Event
	err    error
}

func (m *recordingMirror) Publish(_ context.Context, evt publishers.Event) (int, error) {
	m.events = append(m.events, evt)
	if m.err != nil {
		return 0, m.err
	}
	return 1, nil
}

var awsProvider = providers.Provider{ID: "aws", Name: "AWS", Type: providers.ProviderTypeAWS}

func TestAnnounceSaysRenderedLineWithSubscribers(t *testing.T) {
	say := &recordingSayer{}
	stats := domain.NewStats(time.Unix(0, 0))
	mirror := &recordingMirror{err: errors.New("queue down")}

	a, err := New(Options{
		Client:   say,
		Channel:  "#ops",
		Renderer: render.NewRegistry(nil, nil),
		Notify:   staticSubscribers{"aws": {"alice", "bob"}},
		Stats:    stats,
		Mirror:   mirror,
	})
	require.NoError(t, err)

	entry := domain.FeedEntry{ID: "x", Title: "EC2 degraded", Link: "https://status.aws/1"}
	require.NoError(t, a.Announce(context.Background(), awsProvider, entry))

	assert.Equal(t, []string{"#ops"}, say.targets)
	assert.Equal(t, []string{"[AWS] EC2 degraded https://status.aws/1 (cc: alice, bob)"}, say.lines)
	assert.Equal(t, int64(1), stats.Announced())
	require.Len(t, mirror.events, 1)
	assert.Equal(t, "aws", mirror.events[0].ProviderID)
	assert.Equal(t, say.lines[0], mirror.events[0].Line)
}

func TestAnnounceWithoutSubscribersOmitsCC(t *testing.T) {
	say := &recordingSayer{}
	a, err := New(Options{Client: say, Channel: "#ops", Renderer: render.NewRegistry(nil, nil)})
	require.NoError(t, err)

	require.NoError(t, a.Announce(context.Background(), awsProvider, domain.FeedEntry{Title: "ok", Link: "l"}))
	assert.Equal(t, []string{"[AWS] ok l"}, say.lines)
}

func TestAnnounceSayFailureIsNotCounted(t *testing.T) {
	stats := domain.NewStats(time.Unix(0, 0))
	a, err := New(Options{
		Client:   &recordingSayer{err: errors.New("disconnected")},
		Channel:  "#ops",
		Renderer: render.NewRegistry(nil, nil),
		Stats:    stats,
	})
	require.NoError(t, err)

	assert.Error(t, a.Announce(context.Background(), awsProvider, domain.FeedEntry{Title: "t"}))
	assert.Zero(t, stats.Announced())
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	_, err := New(Options{Channel: "#ops", Renderer: render.NewRegistry(nil, nil)})
	assert.Error(t, err)
	_, err = New(Options{Client: &recordingSayer{}, Renderer: render.NewRegistry(nil, nil)})
	assert.Error(t, err)
	_, err = New(Options{Client: &recordingSayer{}, Channel: "#ops"})
	assert.Error(t, err)
}

// strictSayer rejects anything that would not fit one protocol line.
type strictSayer struct {
	recordingSayer
}

func (s *strictSayer) Say(target, text string) error {
	if n := len("PRIVMSG " + target + " :" + text + "\r\n"); n > ircconn.MaxLineBytes {
		return fmt.Errorf("line of %d bytes exceeds limit", n)
	}
	return s.recordingSayer.Say(target, text)
}

func TestAnnounceSplitsLongLinesToFitProtocolLimit(t *testing.T) {
	say := &strictSayer{}
	stats := domain.NewStats(time.Unix(0, 0))
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("operator-%02d-oncall", i)
	}
	a, err := New(Options{
		Client:   say,
		Channel:  "#cloud-status",
		Renderer: render.DefaultRegistry(),
		Notify:   staticSubscribers{"azure": names},
		Stats:    stats,
	})
	require.NoError(t, err)

	azure := providers.Provider{ID: "azure", Name: "Azure", Type: providers.ProviderTypeAzure}
	entry := domain.FeedEntry{
		ID:          "a1",
		Title:       "Mitigated - Virtual Machines and dependent services - " + strings.Repeat("West Europe, ", 8),
		Link:        "https://azure.status.microsoft/en-us/status/history/?trackingId=ABCD-123",
		Description: "<p>" + strings.Repeat("Between 09:00 and 11:30 UTC customers saw connection failures. ", 6) + "</p>",
	}
	require.NoError(t, a.Announce(context.Background(), azure, entry))

	require.GreaterOrEqual(t, len(say.lines), 2)
	assert.True(t, strings.HasPrefix(say.lines[0], "[Azure] Mitigated"))
	var mentioned []string
	for _, line := range say.lines[1:] {
		require.True(t, strings.HasPrefix(line, "cc: "), "unexpected line %q", line)
		mentioned = append(mentioned, strings.Split(strings.TrimPrefix(line, "cc: "), ", ")...)
	}
	assert.Equal(t, names, mentioned)
	assert.Equal(t, int64(1), stats.Announced())
}
