package providers

import (
	"fmt"
	"strings"
)

// Keys of Provider.Config that become feed request headers.
const (
	ConfigUserAgentKey    = "user_agent"
	ConfigAcceptKey       = "accept"
	ConfigCacheControlKey = "cache_control"
)

const defaultFeedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"

var headerKeys = []struct {
	key, header, fallback string
}{
	{ConfigAcceptKey, "Accept", defaultFeedAccept},
	{ConfigUserAgentKey, "User-Agent", ""},
	{ConfigCacheControlKey, "Cache-Control", ""},
}

// ConfigString reads key from the provider's free-form config. Scalars other
// than strings are formatted; blanks and missing keys give fallback.
func ConfigString(p Provider, key, fallback string) string {
	raw, ok := p.Config[key]
	if !ok || raw == nil {
		return fallback
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	case int, int64, float64, bool:
		s = fmt.Sprint(v)
	default:
		return fallback
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// Headers builds the feed request headers of p. Accept always has a value;
// the others are sent only when configured.
func Headers(p Provider) map[string]string {
	headers := make(map[string]string, len(headerKeys))
	for _, h := range headerKeys {
		if v := ConfigString(p, h.key, h.fallback); v != "" {
			headers[h.header] = v
		}
	}
	return headers
}
