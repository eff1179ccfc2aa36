package application

import (
	"context"

	"arbscan-service/internal/domain"
)

// PriceSource is one exchange adapter. FetchQuote issues a single request and
// never retries; failures wrap domain.ErrSourceUnavailable or
// domain.ErrInvalidQuote.
type PriceSource interface {
	Name() string
	FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error)
}

// Publisher receives every completed scan report. Implementations must treat
// the report as read-only.
type Publisher interface {
	Publish(ctx context.Context, report domain.ScanReport) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, report domain.ScanReport) error

func (f PublisherFunc) Publish(ctx context.Context, report domain.ScanReport) error {
	return f(ctx, report)
}

// Notifier delivers a non-empty result to a human-facing channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, opportunities domain.ScanResult) error
}

// ReportHistory reads previously published opportunities, newest first.
type ReportHistory interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error)
}
