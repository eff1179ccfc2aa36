package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"arbscan-service/internal/application"
	"arbscan-service/internal/config"
	"arbscan-service/internal/infrastructure/exchange"
	"arbscan-service/internal/infrastructure/logx"
	"arbscan-service/internal/infrastructure/notify"
	"arbscan-service/internal/infrastructure/pg"
	redisstore "arbscan-service/internal/infrastructure/redis"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

func noop() {}

func ProvideLogger() *zap.Logger { return logx.L() }

// ProvideConfig loads and validates configuration.
func ProvideConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// ProvideDB returns nil when history storage is disabled.
func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.Storage != "pg" {
		return nil, noop, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, noop, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, noop, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, noop, err
	}
	if version, dirty, err := pg.MigrationVersion(ctx, db); err == nil {
		log.Info("pg.migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

// ProvideRedisClient returns nil when redis is disabled.
func ProvideRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, func(), error) {
	if !cfg.RedisEnabled {
		return nil, noop, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("redis ping: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideReservations picks the cooldown store for notifications.
func ProvideReservations(client *redis.Client, cfg config.Config) application.IdempotencyStore {
	switch {
	case cfg.NotifyCooldown() <= 0:
		return application.NoopIdempotency{}
	case client != nil:
		return redisstore.New(client, cfg.NotifyCooldown())
	default:
		return application.NewMemoryIdempotency(cfg.NotifyCooldown())
	}
}

func ProvideSources(cfg config.Config) ([]application.PriceSource, error) {
	return exchange.Build(cfg.Sources, exchange.BuildOptions{
		HTTP:         &http.Client{},
		URLs:         cfg.Exchanges,
		StaticPrices: cfg.StaticPrices,
	})
}

func ProvideFetcher(cfg config.Config, log *zap.Logger) *application.PriceFetcher {
	return application.NewPriceFetcher(application.FetcherConfig{
		Timeout:     cfg.FetchTimeout(),
		Retries:     uint64(cfg.FetchRetries),
		MaxInFlight: cfg.FetchMaxInFlight,
		Log:         log.With(zap.String("component", "fetcher")),
	})
}

// ProvideNotifiers returns the channels that have enough configuration.
func ProvideNotifiers(cfg config.Config) []application.Notifier {
	var out []application.Notifier
	if cfg.SMTPHost != "" && cfg.EmailFrom != "" && len(cfg.EmailTo) > 0 {
		out = append(out, notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			To:       cfg.EmailTo,
		}))
	}
	if cfg.WebhookURL != "" {
		out = append(out, notify.NewWebhookNotifier(cfg.WebhookURL, nil))
	}
	return out
}

func ProvideScheduler(cfg config.Config, log *zap.Logger, sources []application.PriceSource, fetcher *application.PriceFetcher, publishers []application.Publisher) (*application.Scheduler, error) {
	pairs, err := cfg.TokenPairs()
	if err != nil {
		return nil, err
	}
	threshold, err := cfg.Threshold()
	if err != nil {
		return nil, err
	}
	return application.NewScheduler(application.SchedulerConfig{
		Pairs:        pairs,
		Sources:      sources,
		MinProfitPct: threshold,
		Interval:     cfg.ScanInterval(),
		Fetcher:      fetcher,
		Publishers:   publishers,
		Log:          log.With(zap.String("component", "scheduler")),
	})
}
