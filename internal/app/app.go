// Package app wires configuration into components and dispatches the
// configured mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/config"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/ladder"
	"github.com/michaelgebbelay/gammawizzard/internal/runner"
)

// Run executes one process lifetime in the configured mode and returns when
// the work is done or ctx is canceled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	deps, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	switch cfg.Mode {
	case "place", "guard":
		return runOnce(ctx, cfg, deps, logger)
	case "archive":
		return runArchive(ctx, cfg, deps, logger)
	default:
		return fmt.Errorf("app: unknown mode %q", cfg.Mode)
	}
}

func runOnce(ctx context.Context, cfg config.Config, deps *Dependencies, logger *slog.Logger) error {
	placer := ladder.New(deps.Broker, ladder.Config{
		Tick:         cfg.Ladder.Tick,
		CreditStart:  cfg.Ladder.CreditStart,
		CreditFloor:  cfg.Ladder.CreditFloor,
		DebitStart:   cfg.Ladder.DebitStart,
		DebitCeiling: cfg.Ladder.DebitCeiling,
		PollInterval: cfg.Ladder.PollInterval.Duration,
		OrderWindow:  cfg.Broker.OrderWindow.Duration,
	}, logger)

	r := runner.New(
		runner.Config{
			LeaseKey:    cfg.Lease.Key,
			LeaseTTL:    cfg.Lease.TTL.Duration,
			QtyTarget:   cfg.Trade.EffectiveTarget(),
			QuoteSymbol: cfg.Broker.QuoteSymbol,
			OrderWindow: cfg.Broker.OrderWindow.Duration,
			DryRun:      cfg.Trade.DryRun,
			GuardOnly:   cfg.Mode == "guard",
			MaxSession:  cfg.Ladder.MaxSession.Duration,
		},
		deps.Signals,
		deps.Broker,
		deps.Broker,
		deps.Lease,
		deps.Decisions,
		deps.Executions,
		placer,
		deps.Notifier,
		logger,
	)

	dec, res, err := r.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateRun) {
			logger.Warn("another run holds the lease, exiting")
			return nil
		}
		return err
	}

	logger.Info("run complete",
		slog.String("verdict", string(dec.Verdict)),
		slog.Bool("placed", res != nil),
	)
	return nil
}

func runArchive(ctx context.Context, cfg config.Config, deps *Dependencies, logger *slog.Logger) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode needs postgres and s3 configured")
	}
	cutoff := time.Now().Add(-cfg.S3.RetainFor.Duration)
	logger.Info("archiving history", slog.Time("cutoff", cutoff))
	return deps.Archiver.Archive(ctx, cutoff)
}
