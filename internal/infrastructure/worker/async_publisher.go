package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"

	"go.uber.org/zap"
)

var _ application.Publisher = (*AsyncPublisher)(nil)

// AsyncPublisher hands reports to a background loop so that a slow downstream
// publisher never delays a scan cycle. When the queue is full the report is
// dropped for this publisher only.
type AsyncPublisher struct {
	Name    string
	Next    application.Publisher
	Timeout time.Duration
	Log     *zap.Logger

	jobs    chan domain.ScanReport
	done    chan struct{}
	started atomic.Bool
}

func NewAsyncPublisher(name string, next application.Publisher, queue int, timeout time.Duration, log *zap.Logger) *AsyncPublisher {
	if queue <= 0 {
		queue = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AsyncPublisher{
		Name:    name,
		Next:    next,
		Timeout: timeout,
		Log:     log.With(zap.String("worker", name)),
		jobs:    make(chan domain.ScanReport, queue),
		done:    make(chan struct{}),
	}
}

func (p *AsyncPublisher) Publish(_ context.Context, report domain.ScanReport) error {
	select {
	case p.jobs <- report:
		return nil
	default:
		return fmt.Errorf("%s: queue full, report %s dropped", p.Name, report.ID)
	}
}

// Start consumes queued reports until ctx is done, then drains what is left
// so that the last cycle's report is still delivered. Only the first call
// does anything.
func (p *AsyncPublisher) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	defer close(p.done)
	p.Log.Info("async_publisher.started")
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.Background())
			p.Log.Info("async_publisher.stopped")
			return
		case r := <-p.jobs:
			p.processOne(context.WithoutCancel(ctx), r)
		}
	}
}

// Done is closed once Start has returned.
func (p *AsyncPublisher) Done() <-chan struct{} { return p.done }

// Flush delivers every queued report on the calling goroutine.
func (p *AsyncPublisher) Flush(ctx context.Context) {
	for {
		select {
		case r := <-p.jobs:
			p.processOne(ctx, r)
		default:
			return
		}
	}
}

func (p *AsyncPublisher) processOne(ctx context.Context, r domain.ScanReport) {
	defer func() {
		if rec := recover(); rec != nil {
			p.Log.Warn("async_publisher.panic", zap.Any("r", rec), zap.String("scan_id", r.ID))
		}
	}()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	if err := p.Next.Publish(ctx, r); err != nil {
		p.Log.Warn("async_publisher.failed", zap.String("scan_id", r.ID), zap.Error(err))
	}
}
