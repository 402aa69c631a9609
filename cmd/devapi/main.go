package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirehub/portal/internal/auth"
	"github.com/hirehub/portal/internal/config"
	"github.com/hirehub/portal/internal/devapi"
	"github.com/hirehub/portal/internal/identity"
	"github.com/hirehub/portal/internal/infra"
	"github.com/hirehub/portal/internal/logging"
	"github.com/hirehub/portal/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppEnv).With("app", "devapi")

	ctx := context.Background()

	var (
		db   *pgxpool.Pool
		repo identity.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		repo, err = identity.NewPostgresRepository(ctx, db)
		if err != nil {
			logger.Error("prepare accounts", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
		repo = identity.NewMemoryRepository()
	}

	ids := identity.NewService(repo, notification.NewLoggerNotifier(logger, "http://localhost"+cfg.Address()+"/verify-email"))
	app := devapi.New(cfg.AppName+" devapi", devapi.Deps{
		Identity:  ids,
		Auth:      auth.NewService(auth.Config{Secret: cfg.JWTSecret}, ids),
		Profiles:  devapi.NewProfileStore(),
		Points:    cfg.WizardPoints,
		DB:        db,
		Logger:    logger,
		DevRoutes: cfg.IsDevelopment(),
	})

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- app.Listen(cfg.DevAPIAddress())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
