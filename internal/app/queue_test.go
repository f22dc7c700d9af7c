package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueueDropsWhenFull(t *testing.T) {
	var mu sync.Mutex
	var handled []string
	q := newCommandQueue(2, func(_ context.Context, msg domain.ChatMessage) error {
		mu.Lock()
		handled = append(handled, msg.Text)
		mu.Unlock()
		return nil
	}, nil)

	assert.True(t, q.Offer(domain.ChatMessage{Sender: "alice", Text: "one"}))
	assert.True(t, q.Offer(domain.ChatMessage{Sender: "bob", Text: "two"}))
	assert.False(t, q.Offer(domain.ChatMessage{Sender: "carol", Text: "three"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 2
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"one", "two"}, handled)
	mu.Unlock()

	assert.True(t, q.Offer(domain.ChatMessage{Sender: "carol", Text: "three"}), "space frees up once drained")
}

func TestCommandQueueHandlesOneAtATime(t *testing.T) {
	var running, peak, total atomic.Int32
	q := newCommandQueue(commandQueueSize, func(context.Context, domain.ChatMessage) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		total.Add(1)
		return errors.New("reply failed")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	for i := 0; i < 8; i++ {
		require.True(t, q.Offer(domain.ChatMessage{Sender: "alice", Text: "!outage uptime"}))
	}
	require.Eventually(t, func() bool { return total.Load() == 8 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), peak.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue worker did not stop")
	}
}
