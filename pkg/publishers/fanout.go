package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultSinkTimeout bounds one sink's delivery of one event.
const DefaultSinkTimeout = 10 * time.Second

// Fanout mirrors each event to every sink concurrently. Announcements are
// paced by the flood gate, so one slow sink must not hold up the next line.
type Fanout struct {
	publishers []Publisher
	timeout    time.Duration
}

// NewFanout drops nil publishers and uses DefaultSinkTimeout.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			cp = append(cp, p)
		}
	}
	return &Fanout{publishers: cp, timeout: DefaultSinkTimeout}
}

// WithTimeout overrides the per-sink timeout; non-positive disables it.
func (f *Fanout) WithTimeout(d time.Duration) *Fanout {
	if f != nil {
		f.timeout = d
	}
	return f
}

// Publish returns how many sinks accepted the event, joined with the errors
// of the others.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.publishers))
	var wg sync.WaitGroup
	for i, p := range f.publishers {
		wg.Add(1)
		go func(i int, p Publisher) {
			defer wg.Done()
			sinkCtx := ctx
			if f.timeout > 0 {
				var cancel context.CancelFunc
				sinkCtx, cancel = context.WithTimeout(ctx, f.timeout)
				defer cancel()
			}
			if err := p.Publish(sinkCtx, evt); err != nil {
				errs[i] = fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err)
			}
		}(i, p)
	}
	wg.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
