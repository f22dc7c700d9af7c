package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClientGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/rss+xml", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{
		"User-Agent": "custom-agent",
		"Accept":     "application/rss+xml",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "<rss/>", string(resp.Body()))
}

type statusOnly int

func (s statusOnly) Body() []byte    { return nil }
func (s statusOnly) StatusCode() int { return int(s) }

func TestOK(t *testing.T) {
	for code, want := range map[int]bool{200: true, 203: true, 304: false, 404: false, 503: false} {
		assert.Equal(t, want, OK(statusOnly(code)), "OK(%d)", code)
	}
	assert.False(t, OK(nil), "nil response is not OK")
}

func TestRestyClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := NewRestyClient(2*time.Second).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.True(t, OK(resp))
	assert.Equal(t, int32(2), hits.Load(), "one retry")
}

func TestRestyClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := NewRestyClient(2*time.Second).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, int32(1), hits.Load())
}
