package exchange

import (
	"context"
	"net/url"
	"strings"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"

	"github.com/shopspring/decimal"
)

const huobiBaseURL = "https://api.huobi.pro"

var _ application.PriceSource = (*Huobi)(nil)

type Huobi struct{ endpoint }

func NewHuobi(opts Options) *Huobi {
	return &Huobi{newEndpoint("huobi", huobiBaseURL, opts)}
}

type huobiResp struct {
	Status string `json:"status"`
	ErrMsg string `json:"err-msg"`
	Tick   *struct {
		Close decimal.NullDecimal `json:"close"`
		Bid   []decimal.Decimal   `json:"bid"`
		Ask   []decimal.Decimal   `json:"ask"`
	} `json:"tick"`
}

func (h *Huobi) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body huobiResp
	q := url.Values{"symbol": {strings.ToLower(symbol(pair, "", nil))}}
	if err := h.get(ctx, "/market/detail/merged", q, &body); err != nil {
		return domain.Quote{}, err
	}
	if body.Status != "ok" {
		return domain.Quote{}, h.unavailable("status %s %s", body.Status, body.ErrMsg)
	}
	if body.Tick == nil {
		return domain.Quote{}, h.unavailable("no ticker for %s", pair)
	}
	t := ticker{bid: level(body.Tick.Bid), ask: level(body.Tick.Ask)}
	if body.Tick.Close.Valid {
		t.last = body.Tick.Close.Decimal.String()
	}
	return h.quote(pair, t)
}

// level is the price of a [price, size] book level.
func level(v []decimal.Decimal) string {
	if len(v) == 0 {
		return ""
	}
	return v[0].String()
}
