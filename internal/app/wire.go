package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/michaelgebbelay/gammawizzard/internal/blob/s3"
	"github.com/michaelgebbelay/gammawizzard/internal/cache/memory"
	"github.com/michaelgebbelay/gammawizzard/internal/cache/redis"
	"github.com/michaelgebbelay/gammawizzard/internal/config"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/notify"
	"github.com/michaelgebbelay/gammawizzard/internal/platform/gammawizard"
	"github.com/michaelgebbelay/gammawizzard/internal/platform/schwab"
	"github.com/michaelgebbelay/gammawizzard/internal/store/postgres"
)

// Dependencies holds every wired component for one process. Optional
// components stay nil when their config section is empty.
type Dependencies struct {
	Broker     *schwab.Client
	Signals    *gammawizard.Client
	Lease      domain.LeaseManager
	Decisions  domain.DecisionStore
	Executions domain.ExecutionStore
	Archiver   *s3.Archiver
	Notifier   *notify.Notifier

	closers []func()
}

// Close releases resources in reverse wiring order.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// wire constructs the dependency graph for the configured mode.
func wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}
	ok := false
	defer func() {
		if !ok {
			deps.Close()
		}
	}()

	if cfg.Postgres.Host != "" {
		pg, err := postgres.NewClient(ctx, postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.closers = append(deps.closers, pg.Close)
		deps.Decisions = postgres.NewDecisionStore(pg)
		deps.Executions = postgres.NewExecutionStore(pg)
	} else {
		logger.Warn("postgres not configured, decision history disabled")
	}

	switch cfg.Lease.Backend {
	case "redis":
		rc, err := redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.closers = append(deps.closers, func() { _ = rc.Close() })
		deps.Lease = redis.NewLeaseManager(rc, logger)
	default:
		deps.Lease = memory.NewLeaseManager()
	}

	if cfg.Mode != "archive" {
		deps.Broker = schwab.New(schwab.Config{
			BaseURL:       cfg.Broker.BaseURL,
			MarketDataURL: cfg.Broker.MarketDataURL,
			AccessToken:   cfg.Broker.AccessToken,
			AccountHash:   cfg.Broker.AccountHash,
		}, logger)
		if err := deps.Broker.ResolveAccountHash(ctx); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}

		deps.Signals = gammawizard.New(gammawizard.Config{
			BaseURL:    cfg.Signal.BaseURL,
			Token:      cfg.Signal.Token,
			Email:      cfg.Signal.Email,
			Password:   cfg.Signal.Password,
			OptionRoot: cfg.Signal.OptionRoot,
			Width:      cfg.Signal.Width,
		}, logger)
	}

	if cfg.S3.Bucket != "" && deps.Decisions != nil {
		blob, err := s3.NewClient(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.Archiver = s3.NewArchiver(blob, deps.Decisions, deps.Executions, logger)
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscord(cfg.Notify.DiscordWebhook))
	}
	deps.Notifier = notify.New(logger, senders...)

	ok = true
	return deps, nil
}
