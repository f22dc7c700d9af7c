package app

import (
	"context"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/internal/logger"
)

// commandQueueSize bounds the messages waiting for the command worker.
const commandQueueSize = 16

// commandQueue hands chat messages to a single worker. Offers made while the
// buffer is full are dropped.
type commandQueue struct {
	msgs   chan domain.ChatMessage
	handle func(context.Context, domain.ChatMessage) error
	log    logger.Logger
}

func newCommandQueue(size int, handle func(context.Context, domain.ChatMessage) error, log logger.Logger) *commandQueue {
	if size < 1 {
		size = 1
	}
	return &commandQueue{
		msgs:   make(chan domain.ChatMessage, size),
		handle: handle,
		log:    logger.Ensure(log),
	}
}

// Offer enqueues msg without blocking and reports whether it was accepted.
func (q *commandQueue) Offer(msg domain.ChatMessage) bool {
	select {
	case q.msgs <- msg:
		return true
	default:
		q.log.WarnObj("command dropped", "command_drop", map[string]any{
			"sender": msg.Sender,
			"target": msg.Target,
			"queued": len(q.msgs),
		})
		return false
	}
}

// Run handles queued messages one at a time until ctx is done.
func (q *commandQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.msgs:
			if err := q.handle(ctx, msg); err != nil {
				q.log.WarnObj("command reply failed", "command_error", err.Error())
			}
		}
	}
}
