package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/michaelgebbelay/gammawizzard/internal/app"
	"github.com/michaelgebbelay/gammawizzard/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "path to the TOML config file")
		mode       = flag.String("mode", "", "override the configured mode (place, guard, archive)")
		dryRun     = flag.Bool("dry-run", false, "evaluate and log without placing orders")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *dryRun {
		cfg.Trade.DryRun = true
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("starting",
		slog.String("mode", cfg.Mode),
		slog.Any("config", cfg.Redacted()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
