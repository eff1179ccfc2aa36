package domain

import (
	"sort"
	"time"
)

type snapshotKey struct {
	pair   Pair
	source string
}

// PriceSnapshot maps (pair, source) to the quote fetched during one scan
// cycle. It is never mutated after construction.
type PriceSnapshot struct {
	quotes  map[snapshotKey]Quote
	takenAt time.Time
}

// NewPriceSnapshot copies quotes into a new snapshot. A later quote for the
// same (pair, source) replaces an earlier one.
func NewPriceSnapshot(quotes []Quote, takenAt time.Time) PriceSnapshot {
	m := make(map[snapshotKey]Quote, len(quotes))
	for _, q := range quotes {
		m[snapshotKey{pair: q.Pair, source: q.Source}] = q
	}
	return PriceSnapshot{quotes: m, takenAt: takenAt}
}

func (s PriceSnapshot) TakenAt() time.Time { return s.takenAt }

func (s PriceSnapshot) Len() int { return len(s.quotes) }

func (s PriceSnapshot) Get(pair Pair, source string) (Quote, bool) {
	q, ok := s.quotes[snapshotKey{pair: pair, source: source}]
	return q, ok
}

// Pairs returns every pair with at least one quote, sorted.
func (s PriceSnapshot) Pairs() []Pair {
	seen := make(map[Pair]struct{})
	for k := range s.quotes {
		seen[k.pair] = struct{}{}
	}
	out := make([]Pair, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// QuotesFor returns the quotes for pair ordered by source name.
func (s PriceSnapshot) QuotesFor(pair Pair) []Quote {
	var out []Quote
	for k, q := range s.quotes {
		if k.pair == pair {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Quotes returns all quotes ordered by pair, then source.
func (s PriceSnapshot) Quotes() []Quote {
	out := make([]Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair != out[j].Pair {
			return out[i].Pair < out[j].Pair
		}
		return out[i].Source < out[j].Source
	})
	return out
}
