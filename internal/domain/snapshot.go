package domain

import "time"

// PositionSnapshot maps a leg identity key (Leg.Canon) to the signed held
// quantity at decision time: positive = long, negative = short. Fetched fresh
// each run; never cached across runs.
type PositionSnapshot map[string]float64

// Qty returns the signed quantity held for the given identity key.
func (ps PositionSnapshot) Qty(canon string) float64 {
	return ps[canon]
}

// WorkingLeg is one leg of a working order.
type WorkingLeg struct {
	Canon string
	Side  LegSide
}

// WorkingOrder is an order submitted to the broker and not yet filled or
// canceled.
type WorkingOrder struct {
	ID        string
	Status    string
	Legs      []WorkingLeg
	Quantity  int
	FilledQty int
	EnteredAt time.Time
}

// PendingQty is the quantity still working on the order.
func (w WorkingOrder) PendingQty() int {
	if w.FilledQty >= w.Quantity {
		return 0
	}
	return w.Quantity - w.FilledQty
}

// OpenOrderSnapshot is the set of working orders inside the recency window.
type OpenOrderSnapshot struct {
	Orders []WorkingOrder
}

// Matching returns the working orders whose leg set and per-leg sides exactly
// match the spread's four legs.
func (o OpenOrderSnapshot) Matching(s Spread) []WorkingOrder {
	want := make(map[string]LegSide, NumLegs)
	for _, l := range s.Legs {
		want[l.Canon] = l.Side
	}
	var out []WorkingOrder
	for _, wo := range o.Orders {
		if len(wo.Legs) != NumLegs {
			continue
		}
		match := true
		seen := make(map[string]bool, NumLegs)
		for _, wl := range wo.Legs {
			side, ok := want[wl.Canon]
			if !ok || side != wl.Side || seen[wl.Canon] {
				match = false
				break
			}
			seen[wl.Canon] = true
		}
		if match && len(seen) == NumLegs {
			out = append(out, wo)
		}
	}
	return out
}

// TimeWindow bounds a working-order query; the broker API requires both ends.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// easternTZ is the exchange session timezone; working-order windows default
// to the start of the Eastern trading day.
var easternTZ = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// TradingDayWindow returns the window from midnight Eastern of now's trading
// day through now.
func TradingDayWindow(now time.Time) TimeWindow {
	et := now.In(easternTZ)
	start := time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, easternTZ)
	return TimeWindow{From: start, To: now}
}

// RecencyWindow returns the working-order query window for a configured
// lookback. A zero or negative lookback falls back to the trading-day
// default.
func RecencyWindow(now time.Time, lookback time.Duration) TimeWindow {
	if lookback <= 0 {
		return TradingDayWindow(now)
	}
	return TimeWindow{From: now.Add(-lookback), To: now}
}
