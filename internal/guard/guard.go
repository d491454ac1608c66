// Package guard decides whether a target condor may be placed against the
// account's current positions and working orders. Evaluate is pure: no I/O,
// no clock beyond the timestamp stamped on the result.
package guard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

const epsilon = 1e-9

// Evaluate inspects the snapshots and returns the verdict for this run.
//
// Priority order: would-close beats everything (an accidental close is
// irreversible), then partial overlap, then duplicate working order, then
// the top-up / allow computation. Any snapshot inconsistency aborts rather
// than guessing.
func Evaluate(spread domain.Spread, qtyTarget int, positions domain.PositionSnapshot, orders domain.OpenOrderSnapshot) domain.Decision {
	dec := domain.Decision{
		Verdict:   domain.VerdictAbort,
		QtyTarget: qtyTarget,
		Structure: spread.Structure,
		CreatedAt: time.Now().UTC(),
	}
	for i, l := range spread.Legs {
		dec.LegSymbols[i] = l.Symbol
		dec.LegQty[i] = positions.Qty(l.Canon)
	}

	if qtyTarget <= 0 {
		dec.Reason = fmt.Sprintf("BAD_TARGET qty_target=%d", qtyTarget)
		return dec
	}
	for i, q := range dec.LegQty {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			dec.Reason = fmt.Sprintf("SNAPSHOT_INVALID %s acct_qty=%v", dec.LegSymbols[i], q)
			return dec
		}
	}

	// 1. Would-close: a BUY_TO_OPEN against a short, or SELL_TO_OPEN against
	// a long, functionally reduces the existing position.
	var closing []string
	for i, l := range spread.Legs {
		q := dec.LegQty[i]
		if (l.Side == domain.SideBuyToOpen && q < -epsilon) ||
			(l.Side == domain.SideSellToOpen && q > epsilon) {
			closing = append(closing, fmt.Sprintf("%s acct_qty=%+g", l.Symbol, q))
		}
	}
	if len(closing) > 0 {
		dec.Verdict = domain.VerdictSkipWouldClose
		dec.Reason = "WOULD_CLOSE " + strings.Join(closing, "; ")
		return dec
	}

	// 2. Alignment: per-leg magnitude already held in the intended direction.
	// open_units is the worst leg; 0 if any leg has none.
	alignedCount := 0
	minAligned := math.Inf(1)
	for i, l := range spread.Legs {
		q := dec.LegQty[i]
		aligned := 0.0
		if l.Side == domain.SideBuyToOpen {
			aligned = math.Max(0, q)
		} else {
			aligned = math.Max(0, -q)
		}
		if aligned > epsilon {
			alignedCount++
		}
		minAligned = math.Min(minAligned, aligned)
	}
	dec.OpenUnits = int(minAligned)

	// 3. Partial overlap: 1-3 legs held but not a uniform 4-leg position.
	// Topping up a lopsided book creates unbalanced risk; require full
	// alignment before adding size.
	if alignedCount > 0 && alignedCount < domain.NumLegs {
		var present []string
		for i, l := range spread.Legs {
			if q := dec.LegQty[i]; math.Abs(q) > epsilon {
				present = append(present, fmt.Sprintf("%s acct_qty=%+g", l.Symbol, q))
			}
		}
		dec.Verdict = domain.VerdictSkipPartialOverlap
		dec.Reason = "PARTIAL_OVERLAP " + strings.Join(present, "; ")
		return dec
	}

	// 4. Duplicate working order on the exact same legs and direction.
	if matches := orders.Matching(spread); len(matches) > 0 {
		ids := make([]string, 0, len(matches))
		pending := 0
		for _, m := range matches {
			ids = append(ids, m.ID)
			pending += m.PendingQty()
		}
		dec.Verdict = domain.VerdictSkipDuplicateWorking
		dec.Reason = fmt.Sprintf("WORKING_ORDER_%s pending=%d", strings.Join(ids, ","), pending)
		return dec
	}

	// 5. Target computation.
	switch {
	case alignedCount == 0:
		dec.Verdict = domain.VerdictAllow
		dec.RemainingQty = qtyTarget
		dec.Reason = "CLEAN_ACCOUNT"
	case dec.OpenUnits >= qtyTarget:
		dec.Verdict = domain.VerdictAllow
		dec.RemainingQty = 0
		dec.Reason = fmt.Sprintf("AT_OR_ABOVE_TARGET open_units=%d", dec.OpenUnits)
	default:
		dec.Verdict = domain.VerdictTopUp
		dec.RemainingQty = qtyTarget - dec.OpenUnits
		dec.Reason = fmt.Sprintf("TOP_UP open_units=%d", dec.OpenUnits)
	}
	return dec
}
