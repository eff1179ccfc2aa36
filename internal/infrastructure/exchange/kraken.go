package exchange

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const krakenBaseURL = "https://api.kraken.com"

var _ application.PriceSource = (*Kraken)(nil)

var krakenAliases = map[string]string{"BTC": "XBT", "DOGE": "XDG"}

type Kraken struct{ endpoint }

func NewKraken(opts Options) *Kraken {
	return &Kraken{newEndpoint("kraken", krakenBaseURL, opts)}
}

type krakenTicker struct {
	Ask  []string `json:"a"`
	Bid  []string `json:"b"`
	Last []string `json:"c"`
}

type krakenResp struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

func (k *Kraken) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body krakenResp
	q := url.Values{"pair": {symbol(pair, "", krakenAliases)}}
	if err := k.get(ctx, "/0/public/Ticker", q, &body); err != nil {
		return domain.Quote{}, err
	}
	if len(body.Error) > 0 {
		return domain.Quote{}, k.unavailable("%s", strings.Join(body.Error, "; "))
	}
	if len(body.Result) == 0 {
		return domain.Quote{}, k.unavailable("no ticker for %s", pair)
	}
	// Kraken keys the result by its own pair name, which may differ from the
	// requested one (XXBTZUSD for XBTUSD).
	keys := make([]string, 0, len(body.Result))
	for key := range body.Result {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	t := body.Result[keys[0]]
	return k.quote(pair, ticker{bid: first(t.Bid), ask: first(t.Ask), last: first(t.Last)})
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
