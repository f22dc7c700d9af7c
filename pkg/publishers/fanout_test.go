package publishers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	id    string
	err   error
	block bool
	calls atomic.Int32
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return "stub" }
func (s *stubPublisher) Publish(ctx context.Context, _ Event) error {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func TestFanoutCountsSuccessesAndJoinsErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok"}
	bad := &stubPublisher{id: "bad", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{ok, nil, bad})
	require.Equal(t, 2, fanout.Size())

	n, err := fanout.Publish(context.Background(), sampleEvent())
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stub publisher[bad]")
	assert.Equal(t, int32(1), ok.calls.Load())
}

func TestFanoutSlowSinkTimesOut(t *testing.T) {
	slow := &stubPublisher{id: "slow", block: true}
	fast := &stubPublisher{id: "fast"}
	fanout := NewFanout([]Publisher{slow, fast}).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	n, err := fanout.Publish(context.Background(), sampleEvent())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilFanoutIsNoop(t *testing.T) {
	var f *Fanout
	n, err := f.Publish(context.Background(), sampleEvent())
	assert.Zero(t, n)
	assert.NoError(t, err)
	assert.Zero(t, f.Size())
}
