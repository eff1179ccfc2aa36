package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"arbscan-service/internal/application"
	"arbscan-service/internal/config"
	"arbscan-service/internal/domain"
	infraconfig "arbscan-service/internal/infrastructure/config"
	httpserver "arbscan-service/internal/infrastructure/http"
	"arbscan-service/internal/infrastructure/pg"
	redisstore "arbscan-service/internal/infrastructure/redis"
	"arbscan-service/internal/infrastructure/worker"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	notifyQueue   = 16
	notifyTimeout = 30 * time.Second
)

// App is the assembled scanner process.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Scheduler *application.Scheduler
	Server    *httpserver.Server

	workers []*worker.AsyncPublisher
}

// InitApp builds the object graph. The returned cleanup releases every
// connection that was opened, also when an error is returned.
func InitApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	cleanups = append(cleanups, closeDB)
	if err != nil {
		return nil, cleanup, err
	}
	rdb, closeRedis, err := ProvideRedisClient(ctx, cfg)
	cleanups = append(cleanups, closeRedis)
	if err != nil {
		return nil, cleanup, err
	}
	sources, err := ProvideSources(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	app := &App{Config: cfg, Log: log}
	var np *application.NotificationPublisher
	var publishers []application.Publisher
	if rdb != nil {
		publishers = append(publishers, redisstore.NewReportStore(rdb, cfg.RedisLatestKey, cfg.RedisChannel))
	}
	var repo *pg.ReportRepo
	if db != nil {
		repo = pg.NewReportRepo(db)
		publishers = append(publishers, repo)
	}
	if notifiers := ProvideNotifiers(cfg); len(notifiers) > 0 {
		np = &application.NotificationPublisher{
			Notifiers:    notifiers,
			Reservations: ProvideReservations(rdb, cfg),
			Log:          log.With(zap.String("component", "notify")),
		}
		w := worker.NewAsyncPublisher("notify", np, notifyQueue, notifyTimeout, log)
		app.workers = append(app.workers, w)
		publishers = append(publishers, w)
	}

	sched, err := ProvideScheduler(cfg, log, sources, ProvideFetcher(cfg, log), publishers)
	if err != nil {
		return nil, cleanup, err
	}
	app.Scheduler = sched

	srv := httpserver.NewServer(sched)
	if np != nil {
		srv.SetAlerts(np)
	}
	if db != nil {
		srv.SetReadyCheck(db.Ping)
		srv.SetHistory(repo)
	}
	app.Server = srv
	return app, cleanup, nil
}

// Run drives automatic scanning and the HTTP API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	for _, w := range a.workers {
		go w.Start(workerCtx)
	}

	server := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           httpserver.NewRouter(a.Server),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		a.Log.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		a.Log.Info("server stopped")
		return err
	})
	g.Go(func() error {
		defer a.Scheduler.Stop()
		return a.Scheduler.Run(gctx)
	})

	err := g.Wait()
	stopWorkers()
	a.waitWorkers()
	return err
}

// ScanOnce runs one manual cycle and delivers its report to every background
// publisher before returning.
func (a *App) ScanOnce(ctx context.Context) (domain.ScanReport, error) {
	report, err := a.Scheduler.ScanOnce(ctx)
	if err != nil {
		return domain.ScanReport{}, err
	}
	for _, w := range a.workers {
		w.Flush(context.WithoutCancel(ctx))
	}
	return report, nil
}

func (a *App) waitWorkers() {
	for _, w := range a.workers {
		<-w.Done()
	}
}
