package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"arbscan-service/internal/domain"
)

const maxBodyBytes = 1 << 20

type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// GetJSON performs exactly one GET and decodes a JSON body into out.
// Transport failures and non-200 responses wrap domain.ErrSourceUnavailable;
// an undecodable body wraps domain.ErrInvalidQuote.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid url: %v", domain.ErrSourceUnavailable, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, ctx.Err())
		}
		return fmt.Errorf("%w: decode response: %v", domain.ErrInvalidQuote, err)
	}
	return nil
}
