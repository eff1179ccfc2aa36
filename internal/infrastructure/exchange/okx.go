package exchange

import (
	"context"
	"net/url"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
)

const okxBaseURL = "https://www.okx.com"

var _ application.PriceSource = (*OKX)(nil)

type OKX struct{ endpoint }

func NewOKX(opts Options) *OKX {
	return &OKX{newEndpoint("okx", okxBaseURL, opts)}
}

type okxResp struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Last  string `json:"last"`
		BidPx string `json:"bidPx"`
		AskPx string `json:"askPx"`
	} `json:"data"`
}

func (o *OKX) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	var body okxResp
	q := url.Values{"instId": {symbol(pair, "-", nil)}}
	if err := o.get(ctx, "/api/v5/market/ticker", q, &body); err != nil {
		return domain.Quote{}, err
	}
	if body.Code != "0" {
		return domain.Quote{}, o.unavailable("code %s %s", body.Code, body.Msg)
	}
	if len(body.Data) == 0 {
		return domain.Quote{}, o.unavailable("no ticker for %s", pair)
	}
	t := body.Data[0]
	return o.quote(pair, ticker{bid: t.BidPx, ask: t.AskPx, last: t.Last})
}
