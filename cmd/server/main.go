package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mcoot/rpsarbiter/internal/api"
	"github.com/mcoot/rpsarbiter/internal/config"
	"github.com/mcoot/rpsarbiter/internal/factory"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("RPS_CONFIG"), "Path to YAML config file (env: RPS_CONFIG)")
	logLevel := pflag.String("log-level", "", "Override log level: debug, info, warn, error")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// State must be rebuilt before any new line is accepted
	if _, err := app.Arbiter.Restore(ctx); err != nil {
		logger.Error("failed to restore state", slog.String("error", err.Error()))
		os.Exit(1)
	}

	routerCfg := api.RouterConfig{
		Logger:          logger,
		Identity:        cfg.Identity,
		Codec:           app.Codec,
		Registry:        app.Registry,
		Matches:         app.Matches,
		LeaderboardSize: cfg.Game.LeaderboardSize,
	}
	if app.Hub != nil {
		routerCfg.Websocket = app.Hub
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.HTTP.Addr
	server := api.NewServer(api.NewRouter(routerCfg), serverConfig, logger)
	if err := server.Listen(); err != nil {
		logger.Error("failed to bind HTTP listener", slog.String("error", err.Error()))
		_ = app.Close()
		os.Exit(1)
	}

	errCh := make(chan error, 3)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		if err := app.Transport.Run(ctx, app.Arbiter.HandleLine); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := app.Arbiter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("identity", cfg.Identity),
		slog.String("storage", cfg.Storage.Type),
		slog.String("transport", cfg.Transport.Type),
	)

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
		cancel()
	case <-ctx.Done():
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	if exitCode != 0 {
		_ = app.Close()
		os.Exit(exitCode)
	}
}
