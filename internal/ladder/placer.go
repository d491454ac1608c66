package ladder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// Config holds the ladder tuning constants. Both credit and debit bounds are
// configured; the spread's structure selects which pair applies.
type Config struct {
	Tick         float64
	CreditStart  float64
	CreditFloor  float64
	DebitStart   float64
	DebitCeiling float64
	PollInterval time.Duration

	// OrderWindow is the lookback for working-order queries; zero means
	// start-of-day Eastern.
	OrderWindow time.Duration
}

// Placer drives one order through the price ladder: submit, poll, cancel,
// re-price, finalize. One Placer may be reused across runs; all per-session
// state lives in the session struct and dies with Execute.
type Placer struct {
	broker domain.BrokerClient
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Placer over the given broker.
func New(broker domain.BrokerClient, cfg Config, logger *slog.Logger) *Placer {
	return &Placer{
		broker: broker,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "placer")),
		now:    time.Now,
	}
}

// ScheduleFor returns the rung schedule the placer will walk for a spread.
func (p *Placer) ScheduleFor(spread domain.Spread) Schedule {
	if spread.Structure.IsCredit() {
		return Schedule{Start: p.cfg.CreditStart, Bound: p.cfg.CreditFloor, Tick: p.cfg.Tick, Credit: true}
	}
	return Schedule{Start: p.cfg.DebitStart, Bound: p.cfg.DebitCeiling, Tick: p.cfg.Tick, Credit: false}
}

// session is the mutable ladder state for one Execute call.
type session struct {
	spread      domain.Spread
	remQty      int
	filled      int
	canceled    int
	lastOrderID string
	steps       []domain.LadderStep
	aborted     bool
}

func (s *session) step(rung int, action string, at time.Time, opts ...func(*domain.LadderStep)) {
	st := domain.LadderStep{Rung: rung, Action: action, At: at}
	for _, o := range opts {
		o(&st)
	}
	s.steps = append(s.steps, st)
}

func withPrice(px float64) func(*domain.LadderStep)  { return func(s *domain.LadderStep) { s.Price = px } }
func withQty(q int) func(*domain.LadderStep)         { return func(s *domain.LadderStep) { s.Qty = q } }
func withOrderID(id string) func(*domain.LadderStep) { return func(s *domain.LadderStep) { s.OrderID = id } }
func withFilled(d int) func(*domain.LadderStep)      { return func(s *domain.LadderStep) { s.FilledDelta = d } }
func withNote(n string) func(*domain.LadderStep)     { return func(s *domain.LadderStep) { s.Note = n } }

// Execute runs one bounded ladder session for remQty units of the spread and
// returns the terminal result. It never leaves an unreconciled live order:
// every exit path either confirms the order absent or annotates the failure.
func (p *Placer) Execute(ctx context.Context, runID string, spread domain.Spread, remQty int) domain.ExecutionResult {
	sess := &session{spread: spread, remQty: remQty}
	started := p.now().UTC()
	log := p.logger.With(slog.String("run_id", runID))

	sched := p.ScheduleFor(spread)
	if err := sched.Validate(); err != nil {
		sess.aborted = true
		sess.step(0, "abort", p.now().UTC(), withNote(err.Error()))
		return p.result(runID, sess, started)
	}

	// INIT: idempotent cleanup of stale working orders on these exact legs.
	if !p.cleanup(ctx, sess, log) {
		return p.result(runID, sess, started)
	}

	rungs := sched.Prices()
	for k, px := range rungs {
		outstanding := sess.remQty - sess.filled
		if outstanding <= 0 {
			break
		}

		// Re-check for a duplicate working order immediately before every
		// submission; the engine never holds two live orders for these legs.
		clear, err := p.noWorking(ctx, sess.spread)
		if err != nil {
			sess.aborted = true
			sess.step(k, "abort", p.now().UTC(), withNote("WORKING_CHECK_FAIL "+err.Error()))
			break
		}
		if !clear {
			sess.aborted = true
			sess.step(k, "abort", p.now().UTC(), withNote("WORKING_ORDER_PRESENT"))
			break
		}

		oid, err := p.broker.PlaceComplexOrder(ctx, sess.spread, outstanding, px)
		if err != nil {
			sess.aborted = true
			sess.step(k, "abort", p.now().UTC(), withNote("PLACE_FAIL "+err.Error()))
			break
		}
		sess.lastOrderID = oid
		sess.step(k, "place", p.now().UTC(), withPrice(px), withQty(outstanding), withOrderID(oid))
		log.Info("order placed",
			slog.Int("rung", k),
			slog.Float64("price", px),
			slog.Int("qty", outstanding),
			slog.String("order_id", oid),
		)

		if err := sleepCtx(ctx, p.cfg.PollInterval); err != nil {
			p.finalCancel(ctx, sess, k, oid, outstanding, 0, "DEADLINE")
			return p.result(runID, sess, started)
		}

		st, err := p.broker.GetOrderStatus(ctx, oid)
		if err != nil {
			p.finalCancel(ctx, sess, k, oid, outstanding, 0, "STATUS_FAIL "+err.Error())
			return p.result(runID, sess, started)
		}
		delta := clampFill(st.FilledQty, outstanding)
		sess.step(k, "poll", p.now().UTC(), withOrderID(oid), withFilled(delta), withNote(string(st.State)))
		if delta > 0 {
			log.Info("fill observed", slog.Int("rung", k), slog.Int("qty", delta))
		}

		if delta >= outstanding || st.State == domain.OrderFilled {
			sess.filled += outstanding
			break
		}

		if k == len(rungs)-1 {
			// Last rung; FINALIZE cancels whatever remains. The fill already
			// observed must survive even if the recount query fails.
			p.finalCancel(ctx, sess, k, oid, outstanding, delta, "")
			return p.result(runID, sess, started)
		}

		// Cancel before re-pricing, then account for any fill that landed
		// between the poll and the cancel ack.
		counted, ok := p.cancelCounted(ctx, sess, k, oid, outstanding, delta)
		if !ok {
			return p.result(runID, sess, started)
		}
		sess.filled += counted
	}

	return p.result(runID, sess, started)
}

// cleanup cancels stale working orders matching the spread. Returns false
// when a matching order could not be confirmed gone, in which case the
// session is already annotated and no rung may run.
func (p *Placer) cleanup(ctx context.Context, sess *session, log *slog.Logger) bool {
	snap, err := p.broker.GetWorkingOrders(ctx, domain.RecencyWindow(p.now(), p.cfg.OrderWindow))
	if err != nil {
		sess.aborted = true
		sess.step(0, "abort", p.now().UTC(), withNote("CLEANUP_LIST_FAIL "+err.Error()))
		return false
	}
	for _, wo := range snap.Matching(sess.spread) {
		if err := p.broker.CancelOrder(ctx, wo.ID); err != nil {
			log.Warn("stale order cancel failed",
				slog.String("order_id", wo.ID),
				slog.String("error", err.Error()),
			)
			clear, cerr := p.noWorking(ctx, sess.spread)
			if cerr != nil || !clear {
				sess.aborted = true
				sess.step(0, "abort", p.now().UTC(), withOrderID(wo.ID), withNote("CLEANUP_CANCEL_FAIL"))
				return false
			}
		}
		sess.step(0, "cleanup", p.now().UTC(), withOrderID(wo.ID), withQty(wo.PendingQty()))
	}
	return true
}

// cancelCounted cancels a live order and returns the fill delta to credit to
// the session (total fills on the order, including delta already observed).
// Returns ok=false when the cancel could not be confirmed and the ladder must
// stop without re-submitting.
func (p *Placer) cancelCounted(ctx context.Context, sess *session, rung int, oid string, outstanding, observed int) (int, bool) {
	if err := p.broker.CancelOrder(ctx, oid); err != nil {
		clear, cerr := p.noWorking(ctx, sess.spread)
		if cerr != nil || !clear {
			// Never submit while the old order may still be live.
			sess.aborted = true
			sess.step(rung, "abort", p.now().UTC(), withOrderID(oid), withNote("CANCEL_UNCONFIRMED "+err.Error()))
			return 0, false
		}
		sess.step(rung, "cancel", p.now().UTC(), withOrderID(oid), withNote("CANCEL_ERR_CONFIRMED_GONE"))
	} else {
		sess.step(rung, "cancel", p.now().UTC(), withOrderID(oid))
	}

	final := observed
	if st, err := p.broker.GetOrderStatus(ctx, oid); err == nil {
		final = clampFill(st.FilledQty, outstanding)
	}
	sess.canceled += outstanding - final
	return final, true
}

// finalCancel is the FINALIZE step: best-effort cancel of the live order,
// crediting late fills, with the optional failure note recorded in the trace.
// observed is the fill count already seen at poll time; it is the floor for
// the credited quantity when the post-cancel status query fails.
func (p *Placer) finalCancel(ctx context.Context, sess *session, rung int, oid string, outstanding, observed int, note string) {
	if note != "" {
		sess.step(rung, "abort", p.now().UTC(), withOrderID(oid), withNote(note))
		sess.aborted = sess.filled == 0
	}
	// The cancel must outlive the session deadline, otherwise a timed-out
	// ladder would strand its live order.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	counted, ok := p.cancelCounted(ctx, sess, rung, oid, outstanding, observed)
	if ok {
		sess.filled += counted
	}
}

func (p *Placer) noWorking(ctx context.Context, spread domain.Spread) (bool, error) {
	snap, err := p.broker.GetWorkingOrders(ctx, domain.RecencyWindow(p.now(), p.cfg.OrderWindow))
	if err != nil {
		return false, err
	}
	return len(snap.Matching(spread)) == 0, nil
}

func (p *Placer) result(runID string, sess *session, started time.Time) domain.ExecutionResult {
	status := domain.LadderUnfilled
	switch {
	case sess.filled >= sess.remQty && sess.remQty > 0:
		status = domain.LadderFilled
	case sess.filled > 0:
		status = domain.LadderPartial
	case sess.aborted:
		status = domain.LadderAborted
	}
	return domain.ExecutionResult{
		RunID:       runID,
		Status:      status,
		FilledQty:   sess.filled,
		CanceledQty: sess.canceled,
		LastOrderID: sess.lastOrderID,
		Steps:       sess.steps,
		StartedAt:   started,
		CompletedAt: p.now().UTC(),
	}
}

func clampFill(filled, outstanding int) int {
	if filled < 0 {
		return 0
	}
	if filled > outstanding {
		return outstanding
	}
	return filled
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("ladder: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
