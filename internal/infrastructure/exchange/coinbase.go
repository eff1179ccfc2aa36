package exchange

import (
	"context"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const coinbaseBaseURL = "https://api.exchange.coinbase.com"

var _ application.PriceSource = (*Coinbase)(nil)

// Coinbase reads the Coinbase Exchange (formerly Coinbase Pro) product ticker.
type Coinbase struct{ endpoint }

func NewCoinbase(opts Options) *Coinbase {
	return &Coinbase{newEndpoint("coinbase", coinbaseBaseURL, opts)}
}

type coinbaseTicker struct {
	Bid   string `json:"bid"`
	Ask   string `json:"ask"`
	Price string `json:"price"`
}

func (c *Coinbase) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body coinbaseTicker
	if err := c.get(ctx, "/products/"+symbol(pair, "-", nil)+"/ticker", nil, &body); err != nil {
		return domain.Quote{}, err
	}
	return c.quote(pair, ticker{bid: body.Bid, ask: body.Ask, last: body.Price})
}
