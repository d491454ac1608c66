package ladder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelgebbelay/gammawizzard/internal/condor"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

func f(v float64) *float64 { return &v }

func testSpread(t *testing.T) domain.Spread {
	t.Helper()
	sp, err := condor.BuildSpread(domain.Signal{
		Underlying: "SPXW",
		SignalDate: "2024-11-14",
		Expiry:     "2024-11-15",
		InnerPut:   5895,
		InnerCall:  5900,
		Width:      5,
		Cat1:       f(0.3),
		Cat2:       f(0.7),
	})
	require.NoError(t, err)
	return sp
}

// fakeBroker scripts fills per placed order and tracks the live order set so
// tests can assert the single-live-order invariant.
type fakeBroker struct {
	mu          sync.Mutex
	fills       []int // fills[i] applied to the i-th placed order
	placed      []struct {
		price float64
		qty   int
	}
	orders      map[string]*domain.OrderStatus
	live        map[string]domain.WorkingOrder
	stale       []domain.WorkingOrder
	failCancel  bool
	flakyStatus bool // status queries after the first per order fail
	statusCalls map[string]int
	maxLiveSeen int
}

func newFakeBroker(fills ...int) *fakeBroker {
	return &fakeBroker{
		fills:       fills,
		orders:      make(map[string]*domain.OrderStatus),
		live:        make(map[string]domain.WorkingOrder),
		statusCalls: make(map[string]int),
	}
}

func (b *fakeBroker) GetPositions(context.Context) (domain.PositionSnapshot, error) {
	return domain.PositionSnapshot{}, nil
}

func (b *fakeBroker) GetWorkingOrders(context.Context, domain.TimeWindow) (domain.OpenOrderSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var snap domain.OpenOrderSnapshot
	snap.Orders = append(snap.Orders, b.stale...)
	for _, wo := range b.live {
		snap.Orders = append(snap.Orders, wo)
	}
	return snap, nil
}

func (b *fakeBroker) PlaceComplexOrder(_ context.Context, spread domain.Spread, qty int, limit float64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := len(b.placed)
	b.placed = append(b.placed, struct {
		price float64
		qty   int
	}{limit, qty})

	id := fmt.Sprintf("ord-%d", idx+1)
	filled := 0
	if idx < len(b.fills) {
		filled = b.fills[idx]
		if filled > qty {
			filled = qty
		}
	}
	state := domain.OrderWorking
	if filled >= qty {
		state = domain.OrderFilled
	}
	b.orders[id] = &domain.OrderStatus{OrderID: id, State: state, FilledQty: filled, RemainingQty: qty - filled}

	if state == domain.OrderWorking {
		wo := domain.WorkingOrder{ID: id, Status: "WORKING", Quantity: qty, FilledQty: filled}
		for _, l := range spread.Legs {
			wo.Legs = append(wo.Legs, domain.WorkingLeg{Canon: l.Canon, Side: l.Side})
		}
		b.live[id] = wo
	}
	if n := len(b.live); n > b.maxLiveSeen {
		b.maxLiveSeen = n
	}
	return id, nil
}

func (b *fakeBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCancel {
		return fmt.Errorf("cancel refused")
	}
	for i, wo := range b.stale {
		if wo.ID == orderID {
			b.stale = append(b.stale[:i], b.stale[i+1:]...)
			return nil
		}
	}
	if st, ok := b.orders[orderID]; ok && st.State == domain.OrderWorking {
		st.State = domain.OrderCanceled
	}
	delete(b.live, orderID)
	return nil
}

func (b *fakeBroker) GetOrderStatus(_ context.Context, orderID string) (domain.OrderStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls[orderID]++
	if b.flakyStatus && b.statusCalls[orderID] > 1 {
		return domain.OrderStatus{}, fmt.Errorf("status unavailable")
	}
	st, ok := b.orders[orderID]
	if !ok {
		return domain.OrderStatus{}, domain.ErrOrderNotFound
	}
	return *st, nil
}

func testPlacer(b *fakeBroker) *Placer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(b, Config{
		Tick:         0.05,
		CreditStart:  2.10,
		CreditFloor:  1.90,
		DebitStart:   1.90,
		DebitCeiling: 2.10,
		PollInterval: time.Millisecond,
	}, logger)
}

func TestExecuteFillsAcrossRungs(t *testing.T) {
	// Rung 0: no fill. Rung 1: 3 of 4. Rung 2: no fill on the single
	// remaining unit. Rung 3: final unit fills.
	b := newFakeBroker(0, 3, 0, 1)
	res := testPlacer(b).Execute(context.Background(), "run-1", testSpread(t), 4)

	assert.Equal(t, domain.LadderFilled, res.Status)
	assert.Equal(t, 4, res.FilledQty)
	assert.Equal(t, "ord-4", res.LastOrderID)

	require.Len(t, b.placed, 4)
	assert.Equal(t, 2.10, b.placed[0].price)
	assert.Equal(t, 2.05, b.placed[1].price)
	assert.Equal(t, 2.00, b.placed[2].price)
	assert.Equal(t, 1.95, b.placed[3].price)
	assert.Equal(t, 4, b.placed[1].qty)
	assert.Equal(t, 1, b.placed[2].qty, "remainder re-priced after partial fill")

	assert.Equal(t, 1, b.maxLiveSeen, "never more than one live order")

	var deltas []int
	for _, s := range res.Steps {
		if s.Action == "poll" && s.FilledDelta > 0 {
			deltas = append(deltas, s.FilledDelta)
		}
	}
	assert.Equal(t, []int{3, 1}, deltas)
}

func TestExecuteImmediateFill(t *testing.T) {
	b := newFakeBroker(4)
	res := testPlacer(b).Execute(context.Background(), "run-1", testSpread(t), 4)

	assert.Equal(t, domain.LadderFilled, res.Status)
	assert.Equal(t, 4, res.FilledQty)
	assert.Equal(t, 0, res.CanceledQty)
	require.Len(t, b.placed, 1)
}

func TestExecuteUnfilledWalksAllRungs(t *testing.T) {
	b := newFakeBroker()
	res := testPlacer(b).Execute(context.Background(), "run-1", testSpread(t), 4)

	assert.Equal(t, domain.LadderUnfilled, res.Status)
	assert.Equal(t, 0, res.FilledQty)
	require.Len(t, b.placed, 5)
	assert.Equal(t, 1.90, b.placed[4].price, "last rung is the floor")
	assert.Empty(t, b.live, "no live order left behind")
}

func TestExecuteCleansUpStaleOrder(t *testing.T) {
	sp := testSpread(t)
	stale := domain.WorkingOrder{ID: "stale-1", Status: "WORKING", Quantity: 4}
	for _, l := range sp.Legs {
		stale.Legs = append(stale.Legs, domain.WorkingLeg{Canon: l.Canon, Side: l.Side})
	}

	b := newFakeBroker(4)
	b.stale = []domain.WorkingOrder{stale}
	res := testPlacer(b).Execute(context.Background(), "run-1", sp, 4)

	assert.Equal(t, domain.LadderFilled, res.Status)
	require.NotEmpty(t, res.Steps)
	assert.Equal(t, "cleanup", res.Steps[0].Action)
	assert.Equal(t, "stale-1", res.Steps[0].OrderID)
}

func TestExecuteAbortsWhenCancelUnconfirmed(t *testing.T) {
	b := newFakeBroker()
	b.failCancel = true
	res := testPlacer(b).Execute(context.Background(), "run-1", testSpread(t), 4)

	assert.Equal(t, domain.LadderAborted, res.Status)
	require.Len(t, b.placed, 1, "no re-submit while the old order may be live")

	last := res.Steps[len(res.Steps)-1]
	assert.Equal(t, "abort", last.Action)
	assert.Contains(t, last.Note, "CANCEL_UNCONFIRMED")
}

func TestExecuteFloorFillSurvivesStatusOutage(t *testing.T) {
	// Two units fill at the floor rung. The post-cancel recount fails, so
	// the fill observed at poll time is the only count available and must
	// still be credited.
	b := newFakeBroker(0, 0, 0, 0, 2)
	b.flakyStatus = true
	res := testPlacer(b).Execute(context.Background(), "run-1", testSpread(t), 4)

	assert.Equal(t, domain.LadderPartial, res.Status)
	assert.Equal(t, 2, res.FilledQty)
	require.Len(t, b.placed, 5)
	assert.Equal(t, 1.90, b.placed[4].price)
}

func TestExecuteDebitSchedule(t *testing.T) {
	sp := testSpread(t)
	sp.Structure = domain.StructureLongDebit

	b := newFakeBroker()
	sched := testPlacer(b).ScheduleFor(sp)
	assert.False(t, sched.Credit)
	assert.Equal(t, []float64{1.90, 1.95, 2.00, 2.05, 2.10}, sched.Prices())
}
