// Package render turns feed entries into single chat lines. Each provider can
// have its own renderer; anything without one uses the generic renderer.
package render

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/outage-bot/internal/domain"
	"github.com/samvad-hq/outage-bot/pkg/providers"
)

// Renderer formats one entry of one provider.
type Renderer interface {
	Render(p providers.Provider, e domain.FeedEntry) string
}

// Func adapts a plain function to Renderer.
type Func func(p providers.Provider, e domain.FeedEntry) string

func (f Func) Render(p providers.Provider, e domain.FeedEntry) string { return f(p, e) }

// Registry picks a renderer by provider id first, then by provider type.
type Registry struct {
	renderers map[string]Renderer
	fallback  Renderer
}

// NewRegistry builds a registry; a nil fallback selects Generic.
func NewRegistry(renderers map[string]Renderer, fallback Renderer) *Registry {
	if fallback == nil {
		fallback = Func(Generic)
	}
	r := &Registry{renderers: make(map[string]Renderer, len(renderers)), fallback: fallback}
	for k, v := range renderers {
		if v == nil {
			continue
		}
		r.renderers[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return r
}

// DefaultRegistry wires the provider specific renderers.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Renderer{
		providers.ProviderTypeAWS:   Func(AWS),
		providers.ProviderTypeAzure: Func(Azure),
	}, nil)
}

// Render formats the entry with the best matching renderer.
func (r *Registry) Render(p providers.Provider, e domain.FeedEntry) string {
	if r == nil {
		return Generic(p, e)
	}
	if rr, ok := r.renderers[strings.ToLower(p.ID)]; ok {
		return oneLine(rr.Render(p, e))
	}
	if rr, ok := r.renderers[strings.ToLower(p.Type)]; ok {
		return oneLine(rr.Render(p, e))
	}
	return oneLine(r.fallback.Render(p, e))
}

// Generic renders "[Name] title link".
func Generic(p providers.Provider, e domain.FeedEntry) string {
	title := e.Title
	if title == "" {
		title = "(untitled)"
	}
	if e.Link == "" {
		return fmt.Sprintf("[%s] %s", p.Name, title)
	}
	return fmt.Sprintf("[%s] %s %s", p.Name, title, e.Link)
}

// AWS entries all link to the same dashboard page, so the publish date is
// what tells them apart.
func AWS(p providers.Provider, e domain.FeedEntry) string {
	line := Generic(p, e)
	if e.PublishedAt == "" {
		return line
	}
	return line + " (" + e.PublishedAt + ")"
}

// oneLine collapses all whitespace runs, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
