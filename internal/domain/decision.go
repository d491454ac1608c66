package domain

import "time"

// Verdict is the guard's judgement on one run.
type Verdict string

const (
	VerdictAllow                Verdict = "ALLOW"
	VerdictTopUp                Verdict = "TOP_UP"
	VerdictSkipWouldClose       Verdict = "SKIP_WOULD_CLOSE"
	VerdictSkipPartialOverlap   Verdict = "SKIP_PARTIAL_OVERLAP"
	VerdictSkipDuplicateWorking Verdict = "SKIP_DUPLICATE_WORKING"
	VerdictAbort                Verdict = "ABORT"
)

// Proceeds reports whether the verdict permits placement.
func (v Verdict) Proceeds() bool {
	return v == VerdictAllow || v == VerdictTopUp
}

// Decision is the guard's full output for one run. Produced once, immutable,
// and logged unconditionally regardless of verdict.
type Decision struct {
	ID             string
	RunID          string
	Verdict        Verdict
	RemainingQty   int
	OpenUnits      int
	QtyTarget      int
	Reason         string
	SignalDate     string
	Structure      StructureType
	LegSymbols     [NumLegs]string
	LegQty         [NumLegs]float64 // signed account quantity per leg at decision time
	UnderlyingLast float64          // best-effort last price, 0 when unavailable
	CreatedAt      time.Time
}
