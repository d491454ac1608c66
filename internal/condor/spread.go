package condor

import (
	"fmt"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// BuildSpread derives the four-leg condor from a signal. Outer strikes sit
// one width outside the inner strikes; sides follow the structure type (credit
// buys the wings and sells the inners, debit is inverted). Deterministic, no
// side effects; fails with domain.ErrInvalidSignal on malformed input.
func BuildSpread(sig domain.Signal) (domain.Spread, error) {
	if err := sig.Validate(); err != nil {
		return domain.Spread{}, err
	}

	exp, err := time.Parse("2006-01-02", sig.Expiry)
	if err != nil {
		return domain.Spread{}, fmt.Errorf("%w: bad expiry %q", domain.ErrInvalidSignal, sig.Expiry)
	}
	exp6 := exp.Format("060102")

	outerPut := sig.InnerPut - sig.Width
	outerCall := sig.InnerCall + sig.Width
	if outerPut <= 0 {
		return domain.Spread{}, fmt.Errorf("%w: outer put strike %d", domain.ErrInvalidSignal, outerPut)
	}
	if !(outerPut < sig.InnerPut && sig.InnerPut <= sig.InnerCall && sig.InnerCall < outerCall) {
		return domain.Spread{}, fmt.Errorf("%w: non-monotonic strikes %d/%d/%d/%d",
			domain.ErrInvalidSignal, outerPut, sig.InnerPut, sig.InnerCall, outerCall)
	}

	structure := sig.Structure()
	wingSide, innerSide := domain.SideBuyToOpen, domain.SideSellToOpen
	if !structure.IsCredit() {
		wingSide, innerSide = domain.SideSellToOpen, domain.SideBuyToOpen
	}

	build := func(right domain.OptionRight, strike int, side domain.LegSide) domain.Leg {
		o := FromParts(sig.Underlying, exp6, right, float64(strike))
		return domain.Leg{
			Symbol: o.String(),
			Canon:  o.Canon(),
			Right:  right,
			Strike: float64(strike),
			Side:   side,
		}
	}

	return domain.Spread{
		Underlying: sig.Underlying,
		Expiry:     sig.Expiry,
		Width:      sig.Width,
		Structure:  structure,
		Legs: [domain.NumLegs]domain.Leg{
			domain.LegOuterPut:  build(domain.RightPut, outerPut, wingSide),
			domain.LegInnerPut:  build(domain.RightPut, sig.InnerPut, innerSide),
			domain.LegInnerCall: build(domain.RightCall, sig.InnerCall, innerSide),
			domain.LegOuterCall: build(domain.RightCall, outerCall, wingSide),
		},
	}, nil
}
