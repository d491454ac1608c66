package notify

import (
	"fmt"
	"strings"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

func formatDecision(dec domain.Decision) (string, string) {
	title := fmt.Sprintf("Guard: %s", dec.Verdict)

	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", dec.RunID)
	if dec.SignalDate != "" {
		fmt.Fprintf(&b, "signal date %s\n", dec.SignalDate)
	}
	if dec.Structure != "" {
		fmt.Fprintf(&b, "structure %s\n", dec.Structure)
	}
	if dec.Reason != "" {
		fmt.Fprintf(&b, "reason %s\n", dec.Reason)
	}
	if dec.Verdict.Proceeds() {
		fmt.Fprintf(&b, "open %d / target %d, placing %d\n", dec.OpenUnits, dec.QtyTarget, dec.RemainingQty)
	}
	if dec.UnderlyingLast > 0 {
		fmt.Fprintf(&b, "underlying last %.2f\n", dec.UnderlyingLast)
	}
	for _, sym := range dec.LegSymbols {
		if sym != "" {
			fmt.Fprintf(&b, "  %s\n", sym)
		}
	}
	return title, strings.TrimRight(b.String(), "\n")
}

func formatExecution(res domain.ExecutionResult) (string, string) {
	title := fmt.Sprintf("Ladder: %s", res.Status)

	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", res.RunID)
	fmt.Fprintf(&b, "filled %d, canceled %d\n", res.FilledQty, res.CanceledQty)
	if res.LastOrderID != "" {
		fmt.Fprintf(&b, "last order %s\n", res.LastOrderID)
	}
	if trace := res.Trace(); trace != "" {
		fmt.Fprintf(&b, "trace: %s\n", trace)
	}
	return title, strings.TrimRight(b.String(), "\n")
}
