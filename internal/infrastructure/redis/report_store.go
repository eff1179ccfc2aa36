package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"arbscan-service/internal/application"
	"arbscan-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

var _ application.Publisher = (*ReportStore)(nil)

// ReportStore keeps the latest scan report under one key and announces every
// report on a pub/sub channel for out-of-process dashboards.
type ReportStore struct {
	Client  *redis.Client
	Key     string
	Channel string
}

func NewReportStore(client *redis.Client, key, channel string) *ReportStore {
	return &ReportStore{Client: client, Key: key, Channel: channel}
}

func (s *ReportStore) Publish(ctx context.Context, report domain.ScanReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: encode report: %w", err)
	}
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, s.Key, payload, 0)
	if s.Channel != "" {
		pipe.Publish(ctx, s.Channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish report: %w", err)
	}
	return nil
}

// Latest returns domain.ErrNotFound before the first Publish.
func (s *ReportStore) Latest(ctx context.Context) (domain.ScanReport, error) {
	payload, err := s.Client.Get(ctx, s.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ScanReport{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ScanReport{}, fmt.Errorf("redis: read latest: %w", err)
	}
	var report domain.ScanReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.ScanReport{}, fmt.Errorf("redis: decode latest: %w", err)
	}
	return report, nil
}
