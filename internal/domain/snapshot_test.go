package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func mustQuote(t *testing.T, source string, pair Pair, price string) Quote {
	t.Helper()
	q, err := NewQuote(source, pair, decimal.RequireFromString(price), time.Time{})
	require.NoError(t, err)
	return q
}

func TestPriceSnapshot_Lookups(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Quote{
		mustQuote(t, "okx", "ETH/USDT", "3000"),
		mustQuote(t, "binance", "BTC/USDT", "64000"),
		mustQuote(t, "binance", "ETH/USDT", "3001"),
	}
	s := NewPriceSnapshot(in, at)

	require.Equal(t, 3, s.Len())
	require.Equal(t, at, s.TakenAt())
	require.Equal(t, []Pair{"BTC/USDT", "ETH/USDT"}, s.Pairs())

	eth := s.QuotesFor("ETH/USDT")
	require.Len(t, eth, 2)
	require.Equal(t, "binance", eth[0].Source)
	require.Equal(t, "okx", eth[1].Source)

	_, ok := s.Get("BTC/USDT", "okx")
	require.False(t, ok)

	all := s.Quotes()
	require.Equal(t, "BTC/USDT", string(all[0].Pair))
}

func TestPriceSnapshot_IsolatedFromInput(t *testing.T) {
	in := []Quote{mustQuote(t, "okx", "ETH/USDT", "3000")}
	s := NewPriceSnapshot(in, time.Time{})
	in[0].Source = "mutated"

	_, ok := s.Get("ETH/USDT", "okx")
	require.True(t, ok)
}

func TestScanResult_Filter(t *testing.T) {
	r := ScanResult{
		{Pair: "A/B", ProfitPct: decimal.RequireFromString("5")},
		{Pair: "C/D", ProfitPct: decimal.RequireFromString("1.5")},
	}
	got := r.Filter(decimal.RequireFromString("2"))
	require.Len(t, got, 1)
	require.Equal(t, Pair("A/B"), got[0].Pair)
	require.False(t, r.Empty())
	require.True(t, ScanResult{}.Empty())
}

func TestFetchDiagnostics(t *testing.T) {
	d := FetchDiagnostics{Attempted: 2, Failed: 2, Failures: []FetchFailure{
		{Source: "kraken"}, {Source: "kraken"},
	}}
	require.True(t, d.AllFailed())
	require.Equal(t, map[string]int{"kraken": 2}, d.FailuresBySource())
	require.False(t, FetchDiagnostics{}.AllFailed())
}
