package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/outage-bot/internal/logger"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error)

// Registry maps publisher types to builders. It is filled at startup and
// read-only afterwards.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry with the given builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		if typ = strings.ToLower(strings.TrimSpace(typ)); typ != "" && b != nil {
			r.builders[typ] = b
		}
	}
	return r
}

// DefaultRegistry wires up the known sinks.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPublisher,
	})
}

// PublisherFor builds the sink for one config entry.
func (r *Registry) PublisherFor(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	builder := r.builders[strings.ToLower(cfg.Type)]
	if builder == nil {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return builder(ctx, cfg, log)
}

// BuildAll builds every config, failing on the first error.
func BuildAll(ctx context.Context, reg *Registry, cfgs []PublisherConfig, log logger.Logger) ([]Publisher, error) {
	if reg == nil {
		return nil, nil
	}
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.PublisherFor(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
