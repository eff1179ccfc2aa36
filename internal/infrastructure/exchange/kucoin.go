package exchange

import (
	"context"
	"net/url"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const kucoinBaseURL = "https://api.kucoin.com"

var _ application.PriceSource = (*KuCoin)(nil)

type KuCoin struct{ endpoint }

func NewKuCoin(opts Options) *KuCoin {
	return &KuCoin{newEndpoint("kucoin", kucoinBaseURL, opts)}
}

type kucoinResp struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Price   string `json:"price"`
		BestBid string `json:"bestBid"`
		BestAsk string `json:"bestAsk"`
	} `json:"data"`
}

func (k *KuCoin) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body kucoinResp
	q := url.Values{"symbol": {symbol(pair, "-", nil)}}
	if err := k.get(ctx, "/api/v1/market/orderbook/level1", q, &body); err != nil {
		return domain.Quote{}, err
	}
	if body.Code != "200000" {
		return domain.Quote{}, k.unavailable("code %s %s", body.Code, body.Msg)
	}
	if body.Data == nil {
		return domain.Quote{}, k.unavailable("no ticker for %s", pair)
	}
	return k.quote(pair, ticker{bid: body.Data.BestBid, ask: body.Data.BestAsk, last: body.Data.Price})
}
