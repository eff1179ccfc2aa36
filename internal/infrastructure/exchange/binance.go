package exchange

import (
	"context"
	"net/url"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const binanceBaseURL = "https://api.binance.com"

var _ application.PriceSource = (*Binance)(nil)

type Binance struct{ endpoint }

func NewBinance(opts Options) *Binance {
	return &Binance{newEndpoint("binance", binanceBaseURL, opts)}
}

type binanceTicker struct {
	Symbol    string `json:"symbol"`
	BidPrice  string `json:"bidPrice"`
	AskPrice  string `json:"askPrice"`
	LastPrice string `json:"lastPrice"`
}

func (b *Binance) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body binanceTicker
	q := url.Values{"symbol": {symbol(pair, "", nil)}}
	if err := b.get(ctx, "/api/v3/ticker/24hr", q, &body); err != nil {
		return domain.Quote{}, err
	}
	return b.quote(pair, ticker{bid: body.BidPrice, ask: body.AskPrice, last: body.LastPrice})
}
