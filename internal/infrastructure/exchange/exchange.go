// Package exchange holds the price sources backed by public exchange REST
// tickers, plus a static source for local runs.
package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arbscan-service/internal/domain"
	"arbscan-service/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

const defaultUserAgent = "arbscan-service/1.0"

// Options are shared by every REST adapter.
type Options struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
	Now       func() time.Time
}

// endpoint is the part every REST adapter has in common: one base URL, one
// client and no other state.
type endpoint struct {
	name    string
	baseURL string
	client  *httpx.Client
	now     func() time.Time
}

func newEndpoint(name, defaultBase string, opts Options) endpoint {
	base := opts.BaseURL
	if base == "" {
		base = defaultBase
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return endpoint{
		name:    name,
		baseURL: strings.TrimRight(base, "/"),
		client:  &httpx.Client{HTTP: opts.HTTP, UserAgent: ua},
		now:     now,
	}
}

func (e endpoint) Name() string { return e.name }

func (e endpoint) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := e.client.GetJSON(ctx, e.baseURL+path, q, out); err != nil {
		return fmt.Errorf("%s: %w", e.name, err)
	}
	return nil
}

func (e endpoint) unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", e.name, domain.ErrSourceUnavailable, fmt.Sprintf(format, args...))
}

// ticker is the raw top of book an exchange reports, as text.
type ticker struct {
	bid  string
	ask  string
	last string
}

func (e endpoint) quote(pair domain.Pair, t ticker) (domain.Quote, error) {
	price, err := t.price()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", e.name, err)
	}
	return domain.NewQuote(e.name, pair, price, e.now())
}

// price is the bid/ask midpoint when both sides are positive, otherwise the
// last trade price.
func (t ticker) price() (decimal.Decimal, error) {
	bid, ask, last := positive(t.bid), positive(t.ask), positive(t.last)
	switch {
	case !bid.IsZero() && !ask.IsZero():
		return bid.Add(ask).Div(decimal.NewFromInt(2)), nil
	case !last.IsZero():
		return last, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: no positive bid/ask or last price", domain.ErrInvalidQuote)
	}
}

// positive parses s, returning zero for blank, malformed or non-positive input.
func positive(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero
	}
	return d
}

// symbol renders pair in an exchange's notation.
func symbol(pair domain.Pair, sep string, aliases map[string]string) string {
	base, quote := pair.Base(), pair.Quote()
	if a, ok := aliases[base]; ok {
		base = a
	}
	if a, ok := aliases[quote]; ok {
		quote = a
	}
	return base + sep + quote
}
