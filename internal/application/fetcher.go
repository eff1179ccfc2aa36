package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"arbscan-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout = 10 * time.Second
	retryInitialBackoff = 200 * time.Millisecond
	retryMaxBackoff     = time.Second
)

// FetcherConfig tunes the fan-out. Retries happen here rather than in the
// adapters and always stay inside Timeout.
type FetcherConfig struct {
	Timeout     time.Duration
	Retries     uint64
	MaxInFlight int // 0 means one goroutine per (pair, source)
	Log         *zap.Logger
	Clock       Clock
}

// PriceFetcher queries every (pair, source) combination concurrently and
// collects the successes into a PriceSnapshot.
type PriceFetcher struct {
	timeout     time.Duration
	retries     uint64
	maxInFlight int
	log         *zap.Logger
	clock       Clock
}

func NewPriceFetcher(cfg FetcherConfig) *PriceFetcher {
	f := &PriceFetcher{
		timeout:     cfg.Timeout,
		retries:     cfg.Retries,
		maxInFlight: cfg.MaxInFlight,
		log:         cfg.Log,
		clock:       cfg.Clock,
	}
	if f.timeout <= 0 {
		f.timeout = defaultFetchTimeout
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if f.clock == nil {
		f.clock = realClock{}
	}
	return f
}

// FetchAll never fails as a whole: a lookup that errors is left out of the
// snapshot and recorded in the diagnostics.
func (f *PriceFetcher) FetchAll(ctx context.Context, pairs []domain.Pair, sources []PriceSource) (domain.PriceSnapshot, domain.FetchDiagnostics) {
	start := time.Now()
	var (
		mu       sync.Mutex
		quotes   []domain.Quote
		failures []domain.FetchFailure
	)

	var g errgroup.Group
	if f.maxInFlight > 0 {
		g.SetLimit(f.maxInFlight)
	}
	for _, pair := range pairs {
		for _, src := range sources {
			g.Go(func() error {
				q, err := f.fetchOne(ctx, src, pair)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, domain.FetchFailure{
						Pair:   pair,
						Source: src.Name(),
						Kind:   domain.FailureKind(err),
						Reason: err.Error(),
					})
					f.log.Debug("fetch.source_failed",
						zap.String("source", src.Name()),
						zap.String("pair", string(pair)),
						zap.Error(err),
					)
					return nil
				}
				quotes = append(quotes, q)
				return nil
			})
		}
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Pair != failures[j].Pair {
			return failures[i].Pair < failures[j].Pair
		}
		return failures[i].Source < failures[j].Source
	})
	diag := domain.FetchDiagnostics{
		Attempted: len(pairs) * len(sources),
		Succeeded: len(quotes),
		Failed:    len(failures),
		Failures:  failures,
		Duration:  time.Since(start),
	}
	return domain.NewPriceSnapshot(quotes, f.clock.Now()), diag
}

type fetchResult struct {
	quote domain.Quote
	err   error
}

func (f *PriceFetcher) fetchOne(ctx context.Context, src PriceSource, pair domain.Pair) (domain.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var quote domain.Quote
	op := func() error {
		q, err := f.attempt(callCtx, src, pair)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidQuote) {
				return backoff.Permanent(err)
			}
			return err
		}
		quote = q
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = retryInitialBackoff
	exp.MaxInterval = retryMaxBackoff
	exp.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(exp, f.retries), callCtx))
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) || errors.Is(err, domain.ErrInvalidQuote) {
			return domain.Quote{}, err
		}
		return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, src.Name(), err)
	}
	return quote, nil
}

// attempt runs one adapter call and gives up when ctx expires even if the
// adapter ignores it.
func (f *PriceFetcher) attempt(ctx context.Context, src PriceSource, pair domain.Pair) (domain.Quote, error) {
	ch := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetchResult{err: fmt.Errorf("%w: %s: panic: %v", domain.ErrSourceUnavailable, src.Name(), r)}
			}
		}()
		q, err := src.FetchQuote(ctx, pair)
		ch <- fetchResult{quote: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, src.Name(), ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return domain.Quote{}, r.err
		}
		if r.quote.Source == "" {
			r.quote.Source = src.Name()
		}
		r.quote.Pair = pair
		if !r.quote.Price.IsPositive() {
			return domain.Quote{}, fmt.Errorf("%w: %s: non-positive price %s", domain.ErrInvalidQuote, src.Name(), r.quote.Price)
		}
		return r.quote, nil
	}
}
