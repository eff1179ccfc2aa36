package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"
	infraconfig "arbscan-service/internal/infrastructure/config"
	"arbscan-service/internal/infrastructure/logx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scanner is the part of *application.Scheduler the API reads and drives.
type Scanner interface {
	Latest() (domain.ScanReport, bool)
	ScanOnce(ctx context.Context) (domain.ScanReport, error)
	State() application.State
	Cycles() int64
	OpportunitiesFound() int64
	Interval() time.Duration
	Pairs() []domain.Pair
	SourceNames() []string
}

// SentCounter reports how many alerts went out, e.g.
// *application.NotificationPublisher.
type SentCounter interface {
	Sent() int64
}

type Server struct {
	scanner Scanner
	history application.ReportHistory
	ping    func(context.Context) error
	alerts  SentCounter
}

func NewServer(scanner Scanner) *Server { return &Server{scanner: scanner} }

// SetHistory enables GET /opportunities/history.
func (s *Server) SetHistory(h application.ReportHistory) { s.history = h }

// SetAlerts adds the notification counter to /status.
func (s *Server) SetAlerts(c SentCounter) { s.alerts = c }

// SetReadyCheck makes /readyz depend on check.
func (s *Server) SetReadyCheck(check func(context.Context) error) { s.ping = check }

type statusResponse struct {
	State              string     `json:"state"`
	Cycles             int64      `json:"cycles"`
	OpportunitiesFound int64      `json:"opportunities_found"`
	NotificationsSent  int64      `json:"notifications_sent"`
	IntervalSeconds    float64    `json:"interval_seconds"`
	Pairs              []string   `json:"pairs"`
	Sources            []string   `json:"sources"`
	LastScanID         string     `json:"last_scan_id,omitempty"`
	LastScanAt         *time.Time `json:"last_scan_at,omitempty"`
}

func (s *Server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	pairs := s.scanner.Pairs()
	resp := statusResponse{
		State:              s.scanner.State().String(),
		Cycles:             s.scanner.Cycles(),
		OpportunitiesFound: s.scanner.OpportunitiesFound(),
		IntervalSeconds:    s.scanner.Interval().Seconds(),
		Pairs:              make([]string, 0, len(pairs)),
		Sources:            s.scanner.SourceNames(),
	}
	if s.alerts != nil {
		resp.NotificationsSent = s.alerts.Sent()
	}
	for _, p := range pairs {
		resp.Pairs = append(resp.Pairs, p.String())
	}
	if latest, ok := s.scanner.Latest(); ok {
		resp.LastScanID = latest.ID
		resp.LastScanAt = &latest.FinishedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	latest, ok := s.scanner.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no scan completed yet")
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("min_profit_pct")); raw != "" {
		minPct, err := decimal.NewFromString(raw)
		if err != nil || minPct.IsNegative() {
			writeError(w, http.StatusBadRequest, "min_profit_pct must be a non-negative number")
			return
		}
		latest.Opportunities = latest.Opportunities.Filter(minPct)
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) GetDiagnostics(w http.ResponseWriter, _ *http.Request) {
	latest, ok := s.scanner.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no scan completed yet")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ScanID           string                  `json:"scan_id"`
		Cycle            int64                   `json:"cycle"`
		FailuresBySource map[string]int          `json:"failures_by_source"`
		Diagnostics      domain.FetchDiagnostics `json:"diagnostics"`
	}{latest.ID, latest.Cycle, latest.Diagnostics.FailuresBySource(), latest.Diagnostics})
}

func (s *Server) TriggerScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.scanner.ScanOnce(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrSchedulerStopped) {
			writeError(w, http.StatusConflict, "scanner stopped")
			return
		}
		if r.Context().Err() != nil {
			writeError(w, http.StatusServiceUnavailable, "request cancelled")
			return
		}
		logx.WithFields(r.Context()).Error("scan.manual_failed", zap.Error(err))
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, application.ErrNoHistory.Error())
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		logx.WithFields(r.Context()).Error("history.list_failed", zap.Error(err))
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Items []domain.ArbitrageOpportunity `json:"items"`
	}{items})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return infraconfig.DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", application.ErrBadRequest)
	}
	if n > infraconfig.MaxHistoryLimit {
		n = infraconfig.MaxHistoryLimit
	}
	return n, nil
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
