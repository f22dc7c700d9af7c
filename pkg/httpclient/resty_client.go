package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	userAgent     = "outage-bot/1.0 (+status feed relay)"
	retryCount    = 2
	retryWait     = 500 * time.Millisecond
	retryMaxWait  = 3 * time.Second
	statusTooMany = http.StatusTooManyRequests
)

// RestyClient is the feed Client backed by resty.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient returns a feed client with the given per-request timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: NewRestyHTTPClient(timeout)}
}

// NewRestyHTTPClient returns the shared resty setup for callers that need
// other verbs, such as the webhook sink. Transport errors, 429 and 5xx
// answers are retried with backoff.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(retryable)
}

func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	code := resp.StatusCode()
	return code == statusTooMany || code >= http.StatusInternalServerError
}

// Get fetches url; headers override the client defaults.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := r.client.R().SetContext(ctx).SetHeaders(headers).Get(url)
	if err != nil {
		return nil, err
	}
	return restyResponse{resp: resp}, nil
}

type restyResponse struct {
	resp *resty.Response
}

func (r restyResponse) Body() []byte    { return r.resp.Body() }
func (r restyResponse) StatusCode() int { return r.resp.StatusCode() }
