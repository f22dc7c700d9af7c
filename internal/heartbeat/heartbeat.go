// Package heartbeat pings the connection periodically and tracks the
// round-trip latency of the pings.
package heartbeat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

// Pinger is the part of the chat client the heartbeat needs.
type Pinger interface {
	Ping(payload string) error
	OnPong(fn func(payload string))
}

// Heartbeat sends "<tag>:<unix nanos>" pings and matches the echoed pongs.
type Heartbeat struct {
	client   Pinger
	interval time.Duration
	tag      string
	now      func() time.Time
	log      logger.Logger

	once    sync.Once
	lastRTT atomic.Int64
	pongs   atomic.Int64
}

// New builds a heartbeat with a process specific tag.
func New(client Pinger, interval time.Duration, log logger.Logger) *Heartbeat {
	return &Heartbeat{
		client:   client,
		interval: interval,
		tag:      uuid.NewString(),
		now:      time.Now,
		log:      logger.Ensure(log),
	}
}

// init installs the pong listener exactly once.
func (h *Heartbeat) init() {
	h.once.Do(func() { h.client.OnPong(h.handlePong) })
}

// Beat sends one ping.
func (h *Heartbeat) Beat() error {
	h.init()
	payload := h.tag + ":" + strconv.FormatInt(h.now().UnixNano(), 10)
	if err := h.client.Ping(payload); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	return nil
}

// Run pings every interval until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) {
	h.init()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Beat(); err != nil {
				h.log.WarnObj("heartbeat failed", "heartbeat_error", err.Error())
			}
		}
	}
}

// LastRTT is the latency of the most recent matched pong, or zero. The uptime
// command reports it as lag.
func (h *Heartbeat) LastRTT() time.Duration { return time.Duration(h.lastRTT.Load()) }

func (h *Heartbeat) handlePong(payload string) {
	tag, stamp, ok := strings.Cut(payload, ":")
	if !ok || tag != h.tag {
		return
	}
	ns, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return
	}
	rtt := h.now().Sub(time.Unix(0, ns))
	h.lastRTT.Store(int64(rtt))
	h.pongs.Add(1)
	h.log.DebugObj("heartbeat pong", "heartbeat", map[string]any{
		"rtt_ms": rtt.Milliseconds(),
	})
}
