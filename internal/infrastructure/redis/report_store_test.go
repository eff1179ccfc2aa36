package redisstore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"arbscan-service/internal/domain"
	redisstore "arbscan-service/internal/infrastructure/redis"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleReport() domain.ScanReport {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.ScanReport{
		ID:         "scan-1",
		Cycle:      1,
		StartedAt:  at,
		FinishedAt: at.Add(2 * time.Second),
		Opportunities: domain.ScanResult{{
			Pair:       "BTC/USDT",
			BuySource:  "binance",
			SellSource: "kraken",
			BuyPrice:   decimal.RequireFromString("100"),
			SellPrice:  decimal.RequireFromString("102"),
			ProfitPct:  decimal.RequireFromString("2"),
			DetectedAt: at,
		}},
		Diagnostics: domain.FetchDiagnostics{Attempted: 2, Succeeded: 2},
	}
}

func TestReportStore_LatestBeforePublish(t *testing.T) {
	_, client := newClient(t)
	store := redisstore.NewReportStore(client, "arbscan:latest", "arbscan:reports")
	_, err := store.Latest(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportStore_PublishAndLatest(t *testing.T) {
	_, client := newClient(t)
	store := redisstore.NewReportStore(client, "arbscan:latest", "arbscan:reports")
	ctx := context.Background()

	sub := client.Subscribe(ctx, "arbscan:reports")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	report := sampleReport()
	require.NoError(t, store.Publish(ctx, report))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, report.ID, got.ID)
	require.Len(t, got.Opportunities, 1)
	require.True(t, got.Opportunities[0].ProfitPct.Equal(decimal.RequireFromString("2")))

	select {
	case msg := <-sub.Channel():
		var announced domain.ScanReport
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &announced))
		require.Equal(t, "scan-1", announced.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("report was not announced")
	}
}
