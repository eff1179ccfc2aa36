package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"arbscan-service/internal/config"
	"arbscan-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticConfig() config.Config {
	cfg := config.Defaults()
	cfg.Pairs = []string{"BTC/USDT", "ETH/USDT"}
	cfg.Sources = []string{config.SourceStatic}
	cfg.StaticPrices = []string{
		"low:BTC/USDT=100", "low:ETH/USDT=10",
		"high:BTC/USDT=103", "high:ETH/USDT=10.01",
	}
	return cfg
}

type webhookSink struct {
	mu       sync.Mutex
	contents []string
}

func (s *webhookSink) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.contents = append(s.contents, body["content"])
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *webhookSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contents)
}

func TestInitApp_ScanOnceNotifiesWithCooldown(t *testing.T) {
	sink := &webhookSink{}
	hook := httptest.NewServer(sink.handler())
	defer hook.Close()

	cfg := staticConfig()
	cfg.WebhookURL = hook.URL
	require.NoError(t, cfg.Validate())

	app, cleanup, err := InitApp(context.Background(), cfg, zap.NewNop())
	defer cleanup()
	require.NoError(t, err)
	require.Equal(t, []string{"high", "low"}, app.Scheduler.SourceNames())

	report, err := app.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	require.Equal(t, "BTC/USDT|low|high", report.Opportunities[0].Key())
	require.Equal(t, 1, sink.count())
	require.Contains(t, sink.contents[0], "Arbitrage alert: 1 opportunities found")

	// same route inside the cooldown window stays quiet
	_, err = app.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sink.count())
}

func TestInitApp_RedisPublishesLatest(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := staticConfig()
	cfg.RedisEnabled = true
	cfg.RedisAddr = mr.Addr()

	app, cleanup, err := InitApp(context.Background(), cfg, zap.NewNop())
	defer cleanup()
	require.NoError(t, err)

	report, err := app.ScanOnce(context.Background())
	require.NoError(t, err)

	raw, err := mr.Get(cfg.RedisLatestKey)
	require.NoError(t, err)
	var stored domain.ScanReport
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Equal(t, report.ID, stored.ID)
}

func TestInitApp_RedisUnreachable(t *testing.T) {
	cfg := staticConfig()
	cfg.RedisEnabled = true
	cfg.RedisAddr = "127.0.0.1:1"

	_, cleanup, err := InitApp(context.Background(), cfg, zap.NewNop())
	defer cleanup()
	require.Error(t, err)
}

func TestProvideNotifiers(t *testing.T) {
	cfg := config.Defaults()
	require.Empty(t, ProvideNotifiers(cfg))

	cfg.SMTPHost = "smtp.test"
	cfg.EmailFrom = "bot@example.com"
	cfg.EmailTo = []string{"ops@example.com"}
	cfg.WebhookURL = "http://hook.test"
	notifiers := ProvideNotifiers(cfg)
	require.Len(t, notifiers, 2)
	require.Equal(t, "email", notifiers[0].Name())
	require.Equal(t, "webhook", notifiers[1].Name())
}

func TestProvideConfig_Invalid(t *testing.T) {
	t.Setenv("SCANNER_CONFIG", "")
	t.Setenv("PAIRS", "nonsense")
	_, err := ProvideConfig()
	require.ErrorIs(t, err, domain.ErrConfiguration)
}
