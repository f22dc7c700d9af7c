package httpclient

import "context"

// Response is what feed fetchers read back from a GET.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client fetches feed documents. Fetchers depend on this rather than on
// resty so tests can hand them canned bodies.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// OK reports a 2xx status. Status pages answer 200 for a normal feed; some
// CDNs in front of them answer 203.
func OK(r Response) bool {
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 200 && code < 300
}
