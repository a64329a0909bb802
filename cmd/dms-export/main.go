package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/dms-export/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting dms-export service",
		"state_dir", cfg.State.Dir,
		"export_dir", cfg.Export.Dir,
		"db_sink", cfg.Postgres.Enabled(),
		"redis_session", cfg.Redis.Enabled(),
		"service_account", cfg.Auth.HasServiceAccount())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	if err = app.Scheduler.Load(ctx); err != nil {
		return err
	}

	server := bootstrap.StartHTTPServer(cfg.HTTP, app.Scheduler, logger)

	<-ctx.Done()
	logger.InfoContext(ctx, "shutdown signal received")

	return bootstrap.ShutdownHTTPServer(context.WithoutCancel(ctx), server, cfg.HTTP, logger)
}
