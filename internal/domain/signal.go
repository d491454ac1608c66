package domain

import (
	"fmt"
	"time"
)

// Signal is the parsed upstream trade signal: the strikes and expiry of one
// iron condor plus the inside/outside probabilities that select its side.
type Signal struct {
	Underlying string // option root, e.g. "SPXW"
	SignalDate string // ISO date the signal was generated for
	Expiry     string // ISO expiry date
	InnerPut   int
	InnerCall  int
	Width      int
	Cat1       *float64 // prob(outside) -> long condor win probability
	Cat2       *float64 // prob(inside)  -> short condor win probability
	AsOf       time.Time
}

// IsCredit reports whether the signal calls for a short (credit) condor.
// Missing probabilities and ties resolve to credit.
func (s Signal) IsCredit() bool {
	if s.Cat1 == nil || s.Cat2 == nil {
		return true
	}
	return *s.Cat2 >= *s.Cat1
}

// Structure returns the spread structure the signal calls for.
func (s Signal) Structure() StructureType {
	if s.IsCredit() {
		return StructureShortCredit
	}
	return StructureLongDebit
}

// Validate checks that every field required to build a spread is present.
func (s Signal) Validate() error {
	if s.Underlying == "" {
		return fmt.Errorf("%w: missing underlying", ErrInvalidSignal)
	}
	if _, err := time.Parse("2006-01-02", s.Expiry); err != nil {
		return fmt.Errorf("%w: bad expiry %q", ErrInvalidSignal, s.Expiry)
	}
	if s.InnerPut <= 0 || s.InnerCall <= 0 {
		return fmt.Errorf("%w: inner strikes %d/%d", ErrInvalidSignal, s.InnerPut, s.InnerCall)
	}
	if s.Width <= 0 {
		return fmt.Errorf("%w: width %d", ErrInvalidSignal, s.Width)
	}
	if s.InnerPut > s.InnerCall {
		return fmt.Errorf("%w: inner put %d above inner call %d", ErrInvalidSignal, s.InnerPut, s.InnerCall)
	}
	return nil
}
