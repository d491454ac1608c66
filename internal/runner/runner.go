package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/michaelgebbelay/gammawizzard/internal/condor"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/guard"
	"github.com/michaelgebbelay/gammawizzard/internal/ladder"
)

// Config controls one run of the engine.
type Config struct {
	LeaseKey    string
	LeaseTTL    time.Duration
	QtyTarget   int
	QuoteSymbol string // index symbol for the audit quote, e.g. "$SPX"
	OrderWindow time.Duration // working-order lookback; zero means start-of-day Eastern
	DryRun      bool
	GuardOnly   bool
	MaxSession  time.Duration
}

// Notifier receives run milestones. Implementations must not block the run;
// failures are theirs to log.
type Notifier interface {
	DecisionMade(ctx context.Context, dec domain.Decision)
	LadderDone(ctx context.Context, res domain.ExecutionResult)
}

// Runner is the single-flight coordinator: it serializes runs behind a lease,
// gathers the account snapshot, asks the guard for a verdict and hands the
// remainder to the ladder placer. Every run persists its decision, including
// aborts.
type Runner struct {
	cfg        Config
	signals    domain.SignalSource
	broker     domain.BrokerClient
	quotes     domain.QuoteReader
	lease      domain.LeaseManager
	decisions  domain.DecisionStore
	executions domain.ExecutionStore
	placer     *ladder.Placer
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// New wires a Runner. quotes and notifier may be nil.
func New(
	cfg Config,
	signals domain.SignalSource,
	broker domain.BrokerClient,
	quotes domain.QuoteReader,
	lease domain.LeaseManager,
	decisions domain.DecisionStore,
	executions domain.ExecutionStore,
	placer *ladder.Placer,
	notifier Notifier,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:        cfg,
		signals:    signals,
		broker:     broker,
		quotes:     quotes,
		lease:      lease,
		decisions:  decisions,
		executions: executions,
		placer:     placer,
		notifier:   notifier,
		logger:     logger.With(slog.String("component", "runner")),
		now:        time.Now,
	}
}

// Run executes one full cycle. A concurrent run holding the lease returns
// domain.ErrDuplicateRun before any broker traffic. The returned execution
// result is nil when the guard skipped or the run aborted before placement.
func (r *Runner) Run(ctx context.Context) (domain.Decision, *domain.ExecutionResult, error) {
	runID := uuid.NewString()
	log := r.logger.With(slog.String("run_id", runID))

	release, err := r.lease.Acquire(ctx, r.cfg.LeaseKey, r.cfg.LeaseTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLeaseHeld) {
			log.Warn("run already in flight", slog.String("lease_key", r.cfg.LeaseKey))
			return domain.Decision{}, nil, fmt.Errorf("runner: %w", domain.ErrDuplicateRun)
		}
		return domain.Decision{}, nil, fmt.Errorf("runner: acquire lease: %w", err)
	}
	defer release()

	sig, err := r.signals.Fetch(ctx)
	if err != nil {
		dec := r.abortDecision(runID, "SIGNAL_FETCH_FAIL "+err.Error(), "")
		r.record(ctx, log, dec)
		return dec, nil, fmt.Errorf("runner: fetch signal: %w", err)
	}
	log.Info("signal received",
		slog.String("signal_date", sig.SignalDate),
		slog.String("expiry", sig.Expiry),
		slog.Int("inner_put", sig.InnerPut),
		slog.Int("inner_call", sig.InnerCall),
		slog.Bool("credit", sig.IsCredit()),
	)

	spread, err := condor.BuildSpread(sig)
	if err != nil {
		dec := r.abortDecision(runID, "BUILD_SPREAD_FAIL "+err.Error(), sig.SignalDate)
		r.record(ctx, log, dec)
		return dec, nil, fmt.Errorf("runner: build spread: %w", err)
	}

	var (
		positions domain.PositionSnapshot
		orders    domain.OpenOrderSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var perr error
		positions, perr = r.broker.GetPositions(gctx)
		if perr != nil {
			return fmt.Errorf("positions: %w", perr)
		}
		return nil
	})
	g.Go(func() error {
		var oerr error
		orders, oerr = r.broker.GetWorkingOrders(gctx, domain.RecencyWindow(r.now(), r.cfg.OrderWindow))
		if oerr != nil {
			return fmt.Errorf("working orders: %w", oerr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		dec := r.abortDecision(runID, "SNAPSHOT_FAIL "+err.Error(), sig.SignalDate)
		dec.Structure = spread.Structure
		for i, leg := range spread.Legs {
			dec.LegSymbols[i] = leg.Symbol
		}
		r.record(ctx, log, dec)
		return dec, nil, fmt.Errorf("runner: snapshot: %w", err)
	}

	dec := guard.Evaluate(spread, r.cfg.QtyTarget, positions, orders)
	dec.ID = uuid.NewString()
	dec.RunID = runID
	dec.SignalDate = sig.SignalDate
	dec.CreatedAt = r.now().UTC()
	if r.quotes != nil && r.cfg.QuoteSymbol != "" {
		if last, qerr := r.quotes.LastPrice(ctx, r.cfg.QuoteSymbol); qerr == nil {
			dec.UnderlyingLast = last
		} else {
			log.Warn("quote lookup failed", slog.String("error", qerr.Error()))
		}
	}
	r.record(ctx, log, dec)

	if dec.Verdict == domain.VerdictAbort {
		return dec, nil, fmt.Errorf("runner: %w: %s", domain.ErrGuardAbort, dec.Reason)
	}
	if !dec.Verdict.Proceeds() {
		return dec, nil, nil
	}
	if dec.RemainingQty <= 0 {
		log.Info("already at target, nothing to place",
			slog.Int("open_units", dec.OpenUnits),
			slog.Int("qty_target", dec.QtyTarget),
		)
		return dec, nil, nil
	}
	if r.cfg.GuardOnly {
		log.Info("guard-only mode, skipping placement",
			slog.String("verdict", string(dec.Verdict)),
			slog.Int("remaining_qty", dec.RemainingQty),
		)
		return dec, nil, nil
	}
	if r.cfg.DryRun {
		log.Info("dry run, skipping placement",
			slog.String("verdict", string(dec.Verdict)),
			slog.Int("remaining_qty", dec.RemainingQty),
		)
		return dec, nil, nil
	}

	execCtx := ctx
	if r.cfg.MaxSession > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.cfg.MaxSession)
		defer cancel()
	}
	res := r.placer.Execute(execCtx, runID, spread, dec.RemainingQty)
	log.Info("ladder finished",
		slog.String("status", string(res.Status)),
		slog.Int("filled_qty", res.FilledQty),
		slog.Int("canceled_qty", res.CanceledQty),
	)
	if r.executions != nil {
		if err := r.executions.Insert(ctx, res); err != nil {
			log.Error("execution persist failed", slog.String("error", err.Error()))
		}
	}
	if r.notifier != nil {
		r.notifier.LadderDone(ctx, res)
	}
	return dec, &res, nil
}

func (r *Runner) abortDecision(runID, reason, signalDate string) domain.Decision {
	return domain.Decision{
		ID:         uuid.NewString(),
		RunID:      runID,
		Verdict:    domain.VerdictAbort,
		QtyTarget:  r.cfg.QtyTarget,
		Reason:     reason,
		SignalDate: signalDate,
		CreatedAt:  r.now().UTC(),
	}
}

func (r *Runner) record(ctx context.Context, log *slog.Logger, dec domain.Decision) {
	log.Info("decision",
		slog.String("verdict", string(dec.Verdict)),
		slog.String("reason", dec.Reason),
		slog.Int("open_units", dec.OpenUnits),
		slog.Int("remaining_qty", dec.RemainingQty),
	)
	if r.decisions != nil {
		if err := r.decisions.Insert(ctx, dec); err != nil {
			log.Error("decision persist failed", slog.String("error", err.Error()))
		}
	}
	if r.notifier != nil {
		r.notifier.DecisionMade(ctx, dec)
	}
}
