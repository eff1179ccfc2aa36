package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"arbscan-service/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("scan-%d", g.n)
}

// fakeSource serves fixed prices per pair, or an error.
type fakeSource struct {
	name   string
	prices map[domain.Pair]string
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, f.name, ctx.Err())
		}
	}
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	p, ok := f.prices[pair]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s does not list %s", domain.ErrSourceUnavailable, f.name, pair)
	}
	return domain.NewQuote(f.name, pair, decimal.RequireFromString(p), time.Now())
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stuckSource ignores its context entirely.
type stuckSource struct{ name string }

func (s stuckSource) Name() string { return s.name }

func (s stuckSource) FetchQuote(context.Context, domain.Pair) (domain.Quote, error) {
	time.Sleep(time.Second)
	return domain.Quote{}, nil
}

// flakySource fails the first n calls.
type flakySource struct {
	name  string
	price string
	fails int

	mu    sync.Mutex
	calls int
}

func (f *flakySource) Name() string { return f.name }

func (f *flakySource) FetchQuote(_ context.Context, pair domain.Pair) (domain.Quote, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n <= f.fails {
		return domain.Quote{}, fmt.Errorf("%w: %s: flaky", domain.ErrSourceUnavailable, f.name)
	}
	return domain.NewQuote(f.name, pair, decimal.RequireFromString(f.price), time.Now())
}

type recordingPublisher struct {
	mu      sync.Mutex
	reports []domain.ScanReport
	err     error
}

func (r *recordingPublisher) Publish(_ context.Context, report domain.ScanReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func (r *recordingPublisher) all() []domain.ScanReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ScanReport(nil), r.reports...)
}

type recordingNotifier struct {
	name  string
	err   error
	mu    sync.Mutex
	calls []domain.ScanResult
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Notify(_ context.Context, opps domain.ScanResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, opps)
	return n.err
}

type failingReservations struct{}

func (failingReservations) TryReserve(context.Context, string) (bool, error) {
	return false, ErrBoom
}

func quote(source string, pair domain.Pair, price string) domain.Quote {
	q, err := domain.NewQuote(source, pair, decimal.RequireFromString(price), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		panic(err)
	}
	return q
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
