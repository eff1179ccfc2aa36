package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
	"arbscan-service/internal/infrastructure/exchange"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) *application.Scheduler {
	t.Helper()
	low := exchange.NewStatic("low", map[domain.Pair]decimal.Decimal{
		"BTC/USDT": decimal.RequireFromString("100"),
		"ETH/USDT": decimal.RequireFromString("10"),
	})
	high := exchange.NewStatic("high", map[domain.Pair]decimal.Decimal{
		"BTC/USDT": decimal.RequireFromString("102"),
		"ETH/USDT": decimal.RequireFromString("10.05"),
	})
	s, err := application.NewScheduler(application.SchedulerConfig{
		Pairs:        []domain.Pair{"BTC/USDT", "ETH/USDT"},
		Sources:      []application.PriceSource{low, high},
		MinProfitPct: decimal.RequireFromString("1"),
		Interval:     time.Minute,
	})
	require.NoError(t, err)
	return s
}

func setup(t *testing.T) (*Server, http.Handler, *application.Scheduler) {
	t.Helper()
	sched := newScheduler(t)
	srv := NewServer(sched)
	return srv, NewRouter(srv), sched
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	_, h, _ := setup(t)
	rec := do(h, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestRequestIDPropagated(t *testing.T) {
	_, h, _ := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestReadyz_FailingCheck(t *testing.T) {
	srv, _, _ := setup(t)
	srv.SetReadyCheck(func(ctx context.Context) error { return errors.New("db down") })
	h := NewRouter(srv)

	rec := do(h, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"db not ready"}`, rec.Body.String())
}

func TestReadyz_OK(t *testing.T) {
	_, h, _ := setup(t)
	rec := do(h, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOpportunities_BeforeFirstScan(t *testing.T) {
	_, h, _ := setup(t)
	rec := do(h, http.MethodGet, "/opportunities")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"code":404,"message":"no scan completed yet"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/diagnostics")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerScanThenRead(t *testing.T) {
	_, h, sched := setup(t)

	rec := do(h, http.MethodPost, "/scans")
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.ScanReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Opportunities, 1)
	require.Equal(t, domain.Pair("BTC/USDT"), report.Opportunities[0].Pair)
	require.Equal(t, "low", report.Opportunities[0].BuySource)
	require.Equal(t, "high", report.Opportunities[0].SellSource)
	require.EqualValues(t, 1, sched.Cycles())

	rec = do(h, http.MethodGet, "/opportunities")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest domain.ScanReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Equal(t, report.ID, latest.ID)

	rec = do(h, http.MethodGet, "/opportunities?min_profit_pct=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Empty(t, latest.Opportunities)

	rec = do(h, http.MethodGet, "/opportunities?min_profit_pct=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)
	var diag struct {
		ScanID      string                  `json:"scan_id"`
		Diagnostics domain.FetchDiagnostics `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diag))
	require.Equal(t, report.ID, diag.ScanID)
	require.Equal(t, 4, diag.Diagnostics.Attempted)
	require.Equal(t, 4, diag.Diagnostics.Succeeded)
}

func TestTriggerScan_Stopped(t *testing.T) {
	_, h, sched := setup(t)
	sched.Stop()
	rec := do(h, http.MethodPost, "/scans")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatus(t *testing.T) {
	_, h, _ := setup(t)
	rec := do(h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, "idle", st.State)
	require.EqualValues(t, 0, st.Cycles)
	require.Equal(t, 60.0, st.IntervalSeconds)
	require.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, st.Pairs)
	require.Equal(t, []string{"low", "high"}, st.Sources)
	require.Nil(t, st.LastScanAt)
}

type fixedSent int64

func (f fixedSent) Sent() int64 { return int64(f) }

func TestStatus_Counters(t *testing.T) {
	srv, h, _ := setup(t)
	srv.SetAlerts(fixedSent(4))
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/scans").Code)
	}

	rec := do(h, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.EqualValues(t, 2, st.Cycles)
	require.EqualValues(t, 2, st.OpportunitiesFound)
	require.EqualValues(t, 4, st.NotificationsSent)
	require.NotNil(t, st.LastScanAt)
}

type fakeHistory struct {
	items []domain.ArbitrageOpportunity
	err   error
	limit int
}

func (f *fakeHistory) ListRecent(_ context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	f.limit = limit
	return f.items, f.err
}

func TestHistory(t *testing.T) {
	srv, h, _ := setup(t)

	rec := do(h, http.MethodGet, "/opportunities/history")
	require.Equal(t, http.StatusNotFound, rec.Code)

	hist := &fakeHistory{items: []domain.ArbitrageOpportunity{{Pair: "BTC/USDT", BuySource: "a", SellSource: "b"}}}
	srv.SetHistory(hist)

	rec = do(h, http.MethodGet, "/opportunities/history")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 100, hist.limit)
	var body struct {
		Items []domain.ArbitrageOpportunity `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)

	rec = do(h, http.MethodGet, "/opportunities/history?limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1000, hist.limit)

	rec = do(h, http.MethodGet, "/opportunities/history?limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	hist.err = errors.New("db down")
	rec = do(h, http.MethodGet, "/opportunities/history")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	_, h, _ := setup(t)
	rec := do(h, http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"code":404,"message":"not found"}`, rec.Body.String())
}
