package exchange

import (
	"net/http"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/config"
	"arbscan-service/internal/domain"
)

// BuildOptions configures Build.
type BuildOptions struct {
	HTTP         *http.Client
	UserAgent    string
	URLs         config.ExchangeURLs
	StaticPrices []string
	Now          func() time.Time
}

// Build returns the sources named in names, in order. "static" expands to the
// static sources described by StaticPrices.
func Build(names []string, opts BuildOptions) ([]application.PriceSource, error) {
	out := make([]application.PriceSource, 0, len(names))
	for _, name := range names {
		if name == config.SourceStatic {
			statics, err := ParseStaticPrices(opts.StaticPrices)
			if err != nil {
				return nil, err
			}
			if len(statics) == 0 {
				return nil, &domain.ConfigurationError{Field: "static_prices", Reason: "static source needs at least one price"}
			}
			for _, s := range statics {
				out = append(out, s)
			}
			continue
		}
		src, err := New(name, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// New builds a single REST adapter by exchange identifier.
func New(name string, opts BuildOptions) (application.PriceSource, error) {
	o := Options{HTTP: opts.HTTP, UserAgent: opts.UserAgent, Now: opts.Now}
	switch name {
	case config.SourceBinance:
		o.BaseURL = opts.URLs.Binance
		return NewBinance(o), nil
	case config.SourceCoinbase:
		o.BaseURL = opts.URLs.Coinbase
		return NewCoinbase(o), nil
	case config.SourceKraken:
		o.BaseURL = opts.URLs.Kraken
		return NewKraken(o), nil
	case config.SourceKuCoin:
		o.BaseURL = opts.URLs.KuCoin
		return NewKuCoin(o), nil
	case config.SourceBybit:
		o.BaseURL = opts.URLs.Bybit
		return NewBybit(o), nil
	case config.SourceOKX:
		o.BaseURL = opts.URLs.OKX
		return NewOKX(o), nil
	case config.SourceGateIO:
		o.BaseURL = opts.URLs.GateIO
		return NewGateIO(o), nil
	case config.SourceHuobi:
		o.BaseURL = opts.URLs.Huobi
		return NewHuobi(o), nil
	default:
		return nil, &domain.ConfigurationError{Field: "sources", Reason: "unknown source " + name}
	}
}
