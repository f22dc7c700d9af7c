// Package flood runs outbound work sequentially with a fixed minimum spacing
// between items, so bursts never reach the chat server.
package flood

import (
	"context"
	"fmt"
	"time"
)

// Item is one unit of work run by the gate.
type Item[T any] func(ctx context.Context) (T, error)

// Value wraps a plain value so it can be mixed with actions.
func Value[T any](v T) Item[T] {
	return func(context.Context) (T, error) { return v, nil }
}

// Action adapts a function with no result.
func Action(fn func(ctx context.Context) error) Item[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}

// Run executes items strictly in order. After each item completes it waits at
// least spacing before starting the next; there is no wait before the first
// item or after the last. The first error aborts the remaining items and is
// returned along with the results collected so far.
func Run[T any](ctx context.Context, spacing time.Duration, items []Item[T]) ([]T, error) {
	out := make([]T, 0, len(items))

	for i, item := range items {
		if i > 0 && spacing > 0 {
			timer := time.NewTimer(spacing)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return out, err
		}

		res, err := item(ctx)
		if err != nil {
			return out, fmt.Errorf("flood item %d/%d: %w", i+1, len(items), err)
		}
		out = append(out, res)
	}

	return out, nil
}
