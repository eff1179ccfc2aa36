package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageOpportunity is a buy-low/sell-high spread for one pair across two
// sources. BuySource differs from SellSource and SellPrice exceeds BuyPrice.
type ArbitrageOpportunity struct {
	Pair       Pair            `json:"pair"`
	BuySource  string          `json:"buy_source"`
	SellSource string          `json:"sell_source"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	ProfitPct  decimal.Decimal `json:"profit_pct"`
	DetectedAt time.Time       `json:"detected_at"`
}

// ProfitPerUnit is the absolute price difference for one unit of base asset.
func (o ArbitrageOpportunity) ProfitPerUnit() decimal.Decimal {
	return o.SellPrice.Sub(o.BuyPrice)
}

// Key identifies the route of an opportunity independent of its prices.
func (o ArbitrageOpportunity) Key() string {
	return string(o.Pair) + "|" + o.BuySource + "|" + o.SellSource
}

// ScanResult is the ranked list of opportunities of one cycle, sorted by
// ProfitPct descending.
type ScanResult []ArbitrageOpportunity

func (r ScanResult) Empty() bool { return len(r) == 0 }

// Filter returns the opportunities whose ProfitPct is at least minPct,
// preserving order.
func (r ScanResult) Filter(minPct decimal.Decimal) ScanResult {
	out := make(ScanResult, 0, len(r))
	for _, o := range r {
		if o.ProfitPct.GreaterThanOrEqual(minPct) {
			out = append(out, o)
		}
	}
	return out
}
