package exchange

import (
	"context"
	"net/url"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const gateioBaseURL = "https://api.gateio.ws"

var _ application.PriceSource = (*GateIO)(nil)

type GateIO struct{ endpoint }

func NewGateIO(opts Options) *GateIO {
	return &GateIO{newEndpoint("gateio", gateioBaseURL, opts)}
}

type gateioTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
	LowestAsk    string `json:"lowest_ask"`
	HighestBid   string `json:"highest_bid"`
}

func (g *GateIO) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body []gateioTicker
	q := url.Values{"currency_pair": {symbol(pair, "_", nil)}}
	if err := g.get(ctx, "/api/v4/spot/tickers", q, &body); err != nil {
		return domain.Quote{}, err
	}
	if len(body) == 0 {
		return domain.Quote{}, g.unavailable("no ticker for %s", pair)
	}
	t := body[0]
	return g.quote(pair, ticker{bid: t.HighestBid, ask: t.LowestAsk, last: t.Last})
}
