package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"

	"github.com/shopspring/decimal"
)

const staticName = "static"

var _ application.PriceSource = (*Static)(nil)

// Static serves fixed prices. Pairs it has no price for are unavailable.
type Static struct {
	name   string
	prices map[domain.Pair]decimal.Decimal
	now    func() time.Time
}

func NewStatic(name string, prices map[domain.Pair]decimal.Decimal) *Static {
	cp := make(map[domain.Pair]decimal.Decimal, len(prices))
	for p, v := range prices {
		cp[p] = v
	}
	return &Static{name: name, prices: cp, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Static) Name() string { return s.name }

func (s *Static) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w: %v", s.name, domain.ErrSourceUnavailable, err)
	}
	price, ok := s.prices[pair]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%s: %w: no price for %s", s.name, domain.ErrSourceUnavailable, pair)
	}
	return domain.NewQuote(s.name, pair, price, s.now())
}

// ParseStaticPrices reads entries of the form "[source:]PAIR=price" into one
// Static source per source name. Entries without a source name belong to
// "static".
func ParseStaticPrices(entries []string) ([]*Static, error) {
	byName := map[string]map[domain.Pair]decimal.Decimal{}
	for _, raw := range entries {
		name := staticName
		entry := strings.TrimSpace(raw)
		if i := strings.Index(entry, ":"); i >= 0 {
			name = strings.ToLower(strings.TrimSpace(entry[:i]))
			entry = entry[i+1:]
		}
		pairText, priceText, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return nil, &domain.ConfigurationError{Field: "static_prices", Reason: "malformed entry " + raw}
		}
		pair, err := domain.ParsePair(pairText)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "static_prices", Reason: err.Error()}
		}
		price, err := decimal.NewFromString(strings.TrimSpace(priceText))
		if err != nil || !price.IsPositive() {
			return nil, &domain.ConfigurationError{Field: "static_prices", Reason: "price must be a positive number in " + raw}
		}
		if byName[name] == nil {
			byName[name] = map[domain.Pair]decimal.Decimal{}
		}
		byName[name][pair] = price
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Static, 0, len(names))
	for _, n := range names {
		out = append(out, NewStatic(n, byName[n]))
	}
	return out, nil
}
