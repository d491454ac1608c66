// Package ladder submits, monitors, and re-prices one condor order through a
// bounded sequence of limit prices until it fills or the price bound is hit.
package ladder

import (
	"fmt"
	"math"
)

// Schedule is the rung price sequence for one ladder session. Credit ladders
// start high and step down to a floor; debit ladders start low and step up to
// a ceiling. The sequence is monotonic toward the bound and clamped so it
// never overshoots.
type Schedule struct {
	Start  float64
	Bound  float64 // floor for credit, ceiling for debit
	Tick   float64
	Credit bool
}

// Validate checks the schedule invariants.
func (s Schedule) Validate() error {
	if s.Tick <= 0 {
		return fmt.Errorf("ladder: tick must be positive, got %g", s.Tick)
	}
	if s.Credit && s.Start < s.Bound {
		return fmt.Errorf("ladder: credit start %.2f below floor %.2f", s.Start, s.Bound)
	}
	if !s.Credit && s.Start > s.Bound {
		return fmt.Errorf("ladder: debit start %.2f above ceiling %.2f", s.Start, s.Bound)
	}
	return nil
}

// Prices returns the full rung sequence, start first, bound last.
func (s Schedule) Prices() []float64 {
	var out []float64
	px := snapTick(s.Start, s.Tick)
	bound := snapTick(s.Bound, s.Tick)
	if s.Credit {
		for px > bound {
			out = append(out, px)
			px = snapTick(px-s.Tick, s.Tick)
		}
	} else {
		for px < bound {
			out = append(out, px)
			px = snapTick(px+s.Tick, s.Tick)
		}
	}
	out = append(out, bound)
	return out
}

// snapTick rounds a price to the nearest tick, then to cents.
func snapTick(x, tick float64) float64 {
	snapped := math.Round(x/tick) * tick
	return math.Round(snapped*100) / 100
}
