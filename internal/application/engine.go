package application

import (
	"sort"

	"arbscan-service/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProfitPct returns (sell - buy) / buy * 100. buy must be positive.
func ProfitPct(buy, sell decimal.Decimal) decimal.Decimal {
	return sell.Sub(buy).Mul(hundred).Div(buy)
}

// Detect computes every cross-source spread in snapshot and keeps those at
// or above minProfitPct. It only reads its inputs, so the same snapshot
// always yields the same, identically ordered result. Opportunities are
// stamped with the snapshot time.
func Detect(snapshot domain.PriceSnapshot, minProfitPct decimal.Decimal) domain.ScanResult {
	out := domain.ScanResult{}
	for _, pair := range snapshot.Pairs() {
		quotes := snapshot.QuotesFor(pair)
		if len(quotes) < 2 {
			continue
		}
		for _, buy := range quotes {
			for _, sell := range quotes {
				if buy.Source == sell.Source || !sell.Price.GreaterThan(buy.Price) {
					continue
				}
				pct := ProfitPct(buy.Price, sell.Price)
				if pct.LessThan(minProfitPct) {
					continue
				}
				out = append(out, domain.ArbitrageOpportunity{
					Pair:       pair,
					BuySource:  buy.Source,
					SellSource: sell.Source,
					BuyPrice:   buy.Price,
					SellPrice:  sell.Price,
					ProfitPct:  pct,
					DetectedAt: snapshot.TakenAt(),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return rankLess(out[i], out[j]) })
	return out
}

// rankLess orders by profit descending, then pair, buy source and sell source.
func rankLess(a, b domain.ArbitrageOpportunity) bool {
	if c := a.ProfitPct.Cmp(b.ProfitPct); c != 0 {
		return c > 0
	}
	if a.Pair != b.Pair {
		return a.Pair < b.Pair
	}
	if a.BuySource != b.BuySource {
		return a.BuySource < b.BuySource
	}
	return a.SellSource < b.SellSource
}
