package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"arbscan-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultPublishTimeout = 30 * time.Second

var (
	ErrSchedulerStopped = errors.New("scheduler stopped")
	ErrAlreadyRunning   = errors.New("scheduler already running")
)

// State is the scheduler lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SnapshotFetcher is satisfied by *PriceFetcher.
type SnapshotFetcher interface {
	FetchAll(ctx context.Context, pairs []domain.Pair, sources []PriceSource) (domain.PriceSnapshot, domain.FetchDiagnostics)
}

type SchedulerConfig struct {
	Pairs        []domain.Pair
	Sources      []PriceSource
	MinProfitPct decimal.Decimal
	Interval     time.Duration
	Fetcher      SnapshotFetcher
	Publishers   []Publisher
	// PublishTimeout bounds each Publish call. Zero means the smaller of the
	// interval and 30s.
	PublishTimeout time.Duration
	Log            *zap.Logger
}

// Scheduler drives fetch and detect cycles, either one at a time on demand
// or on a fixed interval, and owns the latest published report.
type Scheduler struct {
	pairs        []domain.Pair
	sources      []PriceSource
	minProfitPct decimal.Decimal
	interval     time.Duration
	fetcher      SnapshotFetcher
	publishers   []Publisher
	publishTO    time.Duration
	log          *zap.Logger
	clock        Clock
	idgen        IDGen

	cycleMu sync.Mutex
	state   atomic.Int32
	cycles  atomic.Int64
	found   atomic.Int64
	running atomic.Bool
	waiting atomic.Bool
	latest  atomic.Pointer[domain.ScanReport]

	stopMu sync.Mutex
	stop   context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }
func WithIDGen(g IDGen) Option { return func(s *Scheduler) { s.idgen = g } }

// NewScheduler rejects an unusable setup with a *domain.ConfigurationError.
func NewScheduler(cfg SchedulerConfig, opts ...Option) (*Scheduler, error) {
	if err := validateSchedulerConfig(cfg); err != nil {
		return nil, err
	}
	s := &Scheduler{
		pairs:        append([]domain.Pair(nil), cfg.Pairs...),
		sources:      append([]PriceSource(nil), cfg.Sources...),
		minProfitPct: cfg.MinProfitPct,
		interval:     cfg.Interval,
		fetcher:      cfg.Fetcher,
		publishers:   append([]Publisher(nil), cfg.Publishers...),
		publishTO:    cfg.PublishTimeout,
		log:          cfg.Log,
	}
	if s.publishTO <= 0 {
		s.publishTO = min(s.interval, defaultPublishTimeout)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewPriceFetcher(FetcherConfig{Log: s.log, Clock: s.clock})
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	return s, nil
}

func validateSchedulerConfig(cfg SchedulerConfig) error {
	switch {
	case len(cfg.Pairs) == 0:
		return &domain.ConfigurationError{Field: "pairs", Reason: "at least one pair is required"}
	case len(cfg.Sources) == 0:
		return &domain.ConfigurationError{Field: "sources", Reason: "at least one source is required"}
	case cfg.Interval <= 0:
		return &domain.ConfigurationError{Field: "interval", Reason: "must be positive"}
	case !cfg.MinProfitPct.IsPositive():
		return &domain.ConfigurationError{Field: "min_profit_pct", Reason: "must be positive"}
	}
	for _, p := range cfg.Pairs {
		if !domain.ValidatePair(string(p)) {
			return &domain.ConfigurationError{Field: "pairs", Reason: "malformed pair " + string(p)}
		}
	}
	seen := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if src == nil {
			return &domain.ConfigurationError{Field: "sources", Reason: "nil source"}
		}
		if seen[src.Name()] {
			return &domain.ConfigurationError{Field: "sources", Reason: "duplicate source " + src.Name()}
		}
		seen[src.Name()] = true
	}
	return nil
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

func (s *Scheduler) Interval() time.Duration { return s.interval }

func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

// OpportunitiesFound is the number of opportunities across all cycles so far.
func (s *Scheduler) OpportunitiesFound() int64 { return s.found.Load() }

func (s *Scheduler) Pairs() []domain.Pair { return append([]domain.Pair(nil), s.pairs...) }

func (s *Scheduler) SourceNames() []string {
	out := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.Name())
	}
	return out
}

// Latest returns the most recently published report.
func (s *Scheduler) Latest() (domain.ScanReport, bool) {
	r := s.latest.Load()
	if r == nil {
		return domain.ScanReport{}, false
	}
	return *r, true
}

// ScanOnce runs a single cycle synchronously. It waits for a cycle already in
// flight to finish first.
func (s *Scheduler) ScanOnce(ctx context.Context) (domain.ScanReport, error) {
	if s.State() == StateStopped {
		return domain.ScanReport{}, ErrSchedulerStopped
	}
	if err := ctx.Err(); err != nil {
		return domain.ScanReport{}, err
	}
	return s.runCycle(ctx), nil
}

// Run repeats cycles every interval until ctx is cancelled or Stop is
// called. The time a cycle takes is subtracted from the following wait; an
// overrunning cycle is followed immediately by the next one. A cycle in
// flight when cancellation arrives completes and is published. Run returns
// nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.State() == StateStopped {
		return ErrSchedulerStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.stopMu.Lock()
	if s.State() == StateStopped {
		s.stopMu.Unlock()
		cancel()
		return ErrSchedulerStopped
	}
	s.stop = cancel
	s.stopMu.Unlock()
	defer func() {
		cancel()
		s.waiting.Store(false)
		s.state.Store(int32(StateStopped))
		s.log.Info("scheduler.stopped", zap.Int64("cycles", s.cycles.Load()))
	}()

	s.log.Info("scheduler.started",
		zap.Duration("interval", s.interval),
		zap.Int("pairs", len(s.pairs)),
		zap.Int("sources", len(s.sources)),
	)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if runCtx.Err() != nil || s.State() == StateStopped {
			return nil
		}
		started := time.Now()
		s.runCycle(runCtx)
		if runCtx.Err() != nil {
			return nil
		}

		wait := nextWait(s.interval, time.Since(started))
		if wait <= 0 {
			s.log.Warn("scheduler.cycle_overran", zap.Duration("interval", s.interval))
			continue
		}
		s.waiting.Store(true)
		s.setStateUnlessStopped(StateWaiting)
		timer.Reset(wait)
		select {
		case <-runCtx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return nil
		case <-timer.C:
		}
		s.waiting.Store(false)
	}
}

// Stop moves the scheduler to its terminal state and interrupts a pending
// wait of Run.
func (s *Scheduler) Stop() {
	s.state.Store(int32(StateStopped))
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.stop != nil {
		s.stop()
	}
}

// nextWait is the remaining part of interval after a cycle that took elapsed.
func nextWait(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

func (s *Scheduler) runCycle(ctx context.Context) domain.ScanReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.setStateUnlessStopped(StateScanning)
	defer func() { s.setStateUnlessStopped(s.restingState()) }()

	// in-flight lookups are left to their own timeouts
	cycleCtx := context.WithoutCancel(ctx)

	startedAt := s.clock.Now()
	snapshot, diag := s.fetcher.FetchAll(cycleCtx, s.pairs, s.sources)
	opportunities := Detect(snapshot, s.minProfitPct)
	report := domain.ScanReport{
		ID:            s.idgen.NewID(),
		Cycle:         s.cycles.Add(1),
		StartedAt:     startedAt,
		FinishedAt:    s.clock.Now(),
		Opportunities: opportunities,
		Diagnostics:   diag,
	}

	s.found.Add(int64(len(opportunities)))

	log := s.log.With(zap.Int64("cycle", report.Cycle), zap.String("scan_id", report.ID))
	log.Info("scan.cycle_done",
		zap.Int("opportunities", len(report.Opportunities)),
		zap.Int("succeeded", diag.Succeeded),
		zap.Int("failed", diag.Failed),
		zap.Duration("duration", report.Duration()),
	)
	if diag.AllFailed() {
		log.Error("scan.all_lookups_failed", zap.Any("failures_by_source", diag.FailuresBySource()))
	}

	s.publish(cycleCtx, log, report)
	return report
}

// publish gives every publisher at most publishTO so a hung store cannot hold
// the loop.
func (s *Scheduler) publish(ctx context.Context, log *zap.Logger, report domain.ScanReport) {
	s.latest.Store(&report)
	for _, p := range s.publishers {
		pctx, cancel := context.WithTimeout(ctx, s.publishTO)
		err := p.Publish(pctx, report)
		cancel()
		if err != nil {
			log.Warn("scan.publish_failed", zap.Error(err))
		}
	}
}

// restingState is Waiting while Run sleeps between cycles, Idle otherwise.
func (s *Scheduler) restingState() State {
	if s.waiting.Load() {
		return StateWaiting
	}
	return StateIdle
}

func (s *Scheduler) setStateUnlessStopped(st State) {
	for {
		cur := s.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}
