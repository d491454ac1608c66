package domain

// OptionRight distinguishes puts from calls.
type OptionRight string

const (
	RightPut  OptionRight = "P"
	RightCall OptionRight = "C"
)

// LegSide is the opening instruction for one leg. Closing instructions are
// never issued by this system; the guard exists to make sure of that.
type LegSide string

const (
	SideBuyToOpen  LegSide = "BUY_TO_OPEN"
	SideSellToOpen LegSide = "SELL_TO_OPEN"
)

// StructureType tags a spread as a short (credit) or long (debit) iron condor.
type StructureType string

const (
	StructureShortCredit StructureType = "SHORT_CREDIT"
	StructureLongDebit   StructureType = "LONG_DEBIT"
)

// IsCredit reports whether the structure is priced as a net credit.
func (s StructureType) IsCredit() bool {
	return s == StructureShortCredit
}

// Leg is one option contract within a spread. Immutable once built.
type Leg struct {
	Symbol string // canonical 21-char OCC symbol, e.g. "SPXW  241115P05900000"
	Canon  string // identity key ignoring root (expiry + right + strike)
	Right  OptionRight
	Strike float64
	Side   LegSide
}

// Positional indexes into Spread.Legs. The order is fixed:
// low-strike put, high-strike put, low-strike call, high-strike call.
const (
	LegOuterPut = iota
	LegInnerPut
	LegInnerCall
	LegOuterCall
	NumLegs
)

// Spread is one four-leg iron condor. For SHORT_CREDIT the outer legs
// (wings) are BUY_TO_OPEN and the inner legs SELL_TO_OPEN; for LONG_DEBIT
// the sides are inverted. Built once per run from the Signal; never mutated.
type Spread struct {
	Underlying string
	Expiry     string // ISO date
	Width      int
	Structure  StructureType
	Legs       [NumLegs]Leg
}

// CanonSet returns the identity keys of all four legs.
func (s Spread) CanonSet() map[string]bool {
	set := make(map[string]bool, NumLegs)
	for _, l := range s.Legs {
		set[l.Canon] = true
	}
	return set
}

// OrderType returns the broker net-price order type for this structure.
func (s Spread) OrderType() string {
	if s.Structure.IsCredit() {
		return "NET_CREDIT"
	}
	return "NET_DEBIT"
}
