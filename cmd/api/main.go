package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richfit/myibot/internal/config"
	"github.com/richfit/myibot/internal/infra"
	"github.com/richfit/myibot/internal/logging"
	"github.com/richfit/myibot/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()
	var stores server.Stores

	if cfg.DatabaseURL != "" {
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()
		stores.DB = db
	} else {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		stores.Cache = cache
	}

	if cfg.SessionBackend == config.SessionBackendBadger {
		bdb, err := infra.NewBadger(cfg.BadgerPath, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := bdb.Close(); err != nil {
				logger.Warn("close badger", "error", err)
			}
		}()
		stores.Badger = bdb
	}

	srv, err := server.New(cfg, stores, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("ivr webhooks listening",
		"addr", cfg.Address(),
		"base_url", cfg.BaseURL,
		"session_backend", cfg.SessionBackend,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited cleanly")
	return nil
}
