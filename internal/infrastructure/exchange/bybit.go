package exchange

import (
	"context"
	"net/url"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const bybitBaseURL = "https://api.bybit.com"

var _ application.PriceSource = (*Bybit)(nil)

type Bybit struct{ endpoint }

func NewBybit(opts Options) *Bybit {
	return &Bybit{newEndpoint("bybit", bybitBaseURL, opts)}
}

type bybitResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

func (b *Bybit) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body bybitResp
	q := url.Values{"category": {"spot"}, "symbol": {symbol(pair, "", nil)}}
	if err := b.get(ctx, "/v5/market/tickers", q, &body); err != nil {
		return domain.Quote{}, err
	}
	if body.RetCode != 0 {
		return domain.Quote{}, b.unavailable("retCode %d %s", body.RetCode, body.RetMsg)
	}
	if len(body.Result.List) == 0 {
		return domain.Quote{}, b.unavailable("no ticker for %s", pair)
	}
	t := body.Result.List[0]
	return b.quote(pair, ticker{bid: t.Bid1Price, ask: t.Ask1Price, last: t.LastPrice})
}
