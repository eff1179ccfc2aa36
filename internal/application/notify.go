package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"arbscan-service/internal/domain"

	"go.uber.org/zap"
)

const notifyKeyPrefix = "notify:"

// NotificationPublisher forwards non-empty results to every notifier. When
// Reservations is set, a route already notified within the store's TTL is
// left out; a result with nothing new is not sent at all.
type NotificationPublisher struct {
	Notifiers    []Notifier
	Reservations IdempotencyStore
	Log          *zap.Logger

	sent atomic.Int64
}

var _ Publisher = (*NotificationPublisher)(nil)

func (p *NotificationPublisher) Publish(ctx context.Context, report domain.ScanReport) error {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	if report.Opportunities.Empty() || len(p.Notifiers) == 0 {
		return nil
	}
	fresh := p.fresh(ctx, log, report.Opportunities)
	if fresh.Empty() {
		log.Debug("notify.suppressed", zap.Int("opportunities", len(report.Opportunities)))
		return nil
	}

	var errs []error
	for _, n := range p.Notifiers {
		if err := n.Notify(ctx, fresh); err != nil {
			log.Error("notify.failed", zap.String("notifier", n.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		p.sent.Add(1)
		log.Info("notify.sent", zap.String("notifier", n.Name()), zap.Int("opportunities", len(fresh)))
	}
	return errors.Join(errs...)
}

// Sent counts successful deliveries, one per notifier per alert.
func (p *NotificationPublisher) Sent() int64 { return p.sent.Load() }

func (p *NotificationPublisher) fresh(ctx context.Context, log *zap.Logger, opps domain.ScanResult) domain.ScanResult {
	if p.Reservations == nil {
		return opps
	}
	out := make(domain.ScanResult, 0, len(opps))
	for _, o := range opps {
		ok, err := p.Reservations.TryReserve(ctx, notifyKeyPrefix+o.Key())
		if err != nil {
			// store outage: prefer a duplicate alert over a lost one
			log.Warn("notify.reserve_failed", zap.String("key", o.Key()), zap.Error(err))
			out = append(out, o)
			continue
		}
		if ok {
			out = append(out, o)
		}
	}
	return out
}
