package httpx

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"arbscan-service/internal/domain"

	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func httpClientRT(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt, Timeout: 2 * time.Second}
}

func response(r *http.Request, code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header), Request: r}
}

func TestGetJSON_OK(t *testing.T) {
	var gotURL string
	c := &Client{UserAgent: "arbscan-test", HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		require.Equal(t, "arbscan-test", r.Header.Get("User-Agent"))
		return response(r, 200, `{"ok": true}`), nil
	}))}
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GetJSON(context.Background(), "http://example.com/api", url.Values{"symbol": {"BTCUSDT"}}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, "http://example.com/api?symbol=BTCUSDT", gotURL)
}

func TestGetJSON_SingleAttemptOn500(t *testing.T) {
	var calls int
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return response(r, 500, "err"), nil
	}))}
	var out any
	err := c.GetJSON(context.Background(), "http://example.com", nil, &out)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	require.Equal(t, 1, calls)
}

type tempTimeoutErr struct{}

func (tempTimeoutErr) Error() string   { return "timeout" }
func (tempTimeoutErr) Timeout() bool   { return true }
func (tempTimeoutErr) Temporary() bool { return true }

func TestGetJSON_NetworkError(t *testing.T) {
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		var ne net.Error = tempTimeoutErr{}
		return nil, ne
	}))}
	var out any
	err := c.GetJSON(context.Background(), "http://example.com", nil, &out)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestGetJSON_NotFoundIsUnavailable(t *testing.T) {
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		return response(r, 404, `{"msg":"unknown symbol"}`), nil
	}))}
	var out any
	err := c.GetJSON(context.Background(), "http://example.com", nil, &out)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestGetJSON_DecodeErrorIsInvalidQuote(t *testing.T) {
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewBufferString("{x")), Header: make(http.Header), Request: r}, nil
	}))}
	var out map[string]any
	err := c.GetJSON(context.Background(), "http://example.com", nil, &out)
	require.ErrorIs(t, err, domain.ErrInvalidQuote)
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{HTTP: httpClientRT(rtFunc(func(r *http.Request) (*http.Response, error) {
		return nil, r.Context().Err()
	}))}
	var out any
	err := c.GetJSON(ctx, "http://example.com", nil, &out)
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
