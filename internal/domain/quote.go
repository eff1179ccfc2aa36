package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single point-in-time price observed at one source.
// Price is always positive; construct quotes with NewQuote.
type Quote struct {
	Source     string
	Pair       Pair
	Price      decimal.Decimal
	ObservedAt time.Time
}

// NewQuote returns ErrInvalidQuote when price is not strictly positive.
func NewQuote(source string, pair Pair, price decimal.Decimal, observedAt time.Time) (Quote, error) {
	if !price.IsPositive() {
		return Quote{}, fmt.Errorf("%w: %s %s price %s", ErrInvalidQuote, source, pair, price)
	}
	return Quote{
		Source:     source,
		Pair:       pair,
		Price:      price,
		ObservedAt: observedAt,
	}, nil
}
