package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/target/dms-export/config"
	croncmp "github.com/target/dms-export/internal/adapters/cron"
	"github.com/target/dms-export/internal/adapters/docapi"
	redisstore "github.com/target/dms-export/internal/adapters/redis"
	"github.com/target/dms-export/internal/core"
	"github.com/target/dms-export/internal/data"
	"github.com/target/dms-export/internal/export"
	"github.com/target/dms-export/internal/observability/statsd"
	"github.com/target/dms-export/internal/service"
)

// App holds every wired component for the lifetime of the process.
type App struct {
	Config    config.AppConfig
	Tokens    *service.TokenService
	Exporter  *service.ExportService
	Scheduler *service.SchedulerService
	Trigger   *croncmp.Trigger
	Metrics   *statsd.Client

	pool        *pgxpool.Pool
	redisClient goredis.UniversalClient
	logger      *slog.Logger
}

// NewApp wires the full service graph from configuration. Optional
// infrastructure (Postgres sink, Redis session cache, statsd) is connected
// only when configured.
func NewApp(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, logger: logger}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.StatsdEnabled,
		Address: cfg.Observability.StatsdAddr,
		Prefix:  cfg.Observability.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect statsd: %w", err)
	}
	app.Metrics = metrics

	jobs := data.NewFileJobStore(filepath.Join(cfg.State.Dir, "jobs.json"))
	history := data.NewFileHistoryStore(filepath.Join(cfg.State.Dir, "history.json"))

	sessions, err := app.sessionStore(ctx, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	tokens, err := service.NewTokenService(service.TokenServiceOptions{
		Store:  sessions,
		Auth:   cfg.Auth,
		Logger: logger,
	})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	if err = tokens.Restore(ctx); err != nil {
		logger.WarnContext(ctx, "restore persisted session failed", "error", err)
	}
	app.Tokens = tokens

	dbSink, err := app.databaseSink(ctx, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	runs := core.NewRunRegistry()
	exporter, err := service.NewExportService(service.ExportServiceOptions{
		Docs:        docapi.NewClient(cfg.Export.RequestTimeout),
		Tokens:      tokens,
		Jobs:        jobs,
		Runs:        runs,
		FileSink:    export.NewFileSink(cfg.Export.Dir, cfg.Export.DelimiterRune()),
		DBSink:      dbSink,
		SearchLimit: cfg.Export.SearchLimit,
		Logger:      logger,
	})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Exporter = exporter

	app.Trigger = croncmp.NewTrigger()
	scheduler, err := service.NewSchedulerService(service.SchedulerServiceOptions{
		Jobs:     jobs,
		History:  history,
		Trigger:  app.Trigger,
		Exporter: exporter,
		Runs:     runs,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Scheduler = scheduler

	return app, nil
}

// sessionStore picks the Redis session cache when configured, the local file
// store otherwise.
func (a *App) sessionStore(ctx context.Context, cfg config.AppConfig) (core.SessionStore, error) {
	if !cfg.Redis.Enabled() {
		return data.NewFileSessionStore(filepath.Join(cfg.State.Dir, "session.json")), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redisClient = client
	return redisstore.NewSessionStore(client), nil
}

// databaseSink connects the optional Postgres export sink.
func (a *App) databaseSink(ctx context.Context, cfg config.AppConfig) (core.RowSink, error) {
	if !cfg.Postgres.Enabled() {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool

	sink := data.NewPostgresSink(pool)
	if err := sink.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure export schema: %w", err)
	}
	return sink, nil
}

// Close releases everything in reverse dependency order. Safe on a partially
// constructed App.
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Close()
	}
	if a.Trigger != nil {
		a.Trigger.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
	if a.Metrics != nil {
		if err := a.Metrics.Close(); err != nil {
			a.logger.ErrorContext(ctx, "close statsd failed", "error", err)
		}
	}
}
