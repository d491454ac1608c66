package domain

import (
	"fmt"
	"strings"
	"time"
)

// LadderStatus is the terminal state of one placer session.
type LadderStatus string

const (
	LadderFilled   LadderStatus = "FILLED"
	LadderPartial  LadderStatus = "PARTIAL"
	LadderUnfilled LadderStatus = "UNFILLED"
	LadderAborted  LadderStatus = "ABORTED"
)

// LadderStep is one entry in the placer's trace.
type LadderStep struct {
	Rung        int       `json:"rung"`
	Action      string    `json:"action"` // "cleanup", "place", "poll", "cancel", "abort"
	Price       float64   `json:"price,omitempty"`
	Qty         int       `json:"qty,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	FilledDelta int       `json:"filled_delta,omitempty"`
	Note        string    `json:"note,omitempty"`
	At          time.Time `json:"at"`
}

// ExecutionResult is the placer's terminal report for one run.
type ExecutionResult struct {
	RunID       string
	Status      LadderStatus
	FilledQty   int
	CanceledQty int
	LastOrderID string
	Steps       []LadderStep
	StartedAt   time.Time
	CompletedAt time.Time
}

// Trace renders the step list as a single human-readable line, the form the
// audit sink stores next to the terminal status.
func (r ExecutionResult) Trace() string {
	parts := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		b := fmt.Sprintf("R%d:%s", s.Rung, s.Action)
		if s.Price > 0 {
			b += fmt.Sprintf("@%.2f", s.Price)
		}
		if s.Qty > 0 {
			b += fmt.Sprintf(" qty=%d", s.Qty)
		}
		if s.FilledDelta > 0 {
			b += fmt.Sprintf(" +%d", s.FilledDelta)
		}
		if s.Note != "" {
			b += " " + s.Note
		}
		parts = append(parts, b)
	}
	return strings.Join(parts, "; ")
}
