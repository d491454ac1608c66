// Package condor builds the standardized leg and spread model from upstream
// signals and normalizes the option symbol formats brokers emit.
package condor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// OSI is a decomposed OCC option symbol.
type OSI struct {
	Root   string
	Expiry string // yymmdd
	Right  domain.OptionRight
	Millis int // strike * 1000
}

var (
	// dotted/short form: SPXW241115P5895 or .SPXW241115P5895.5
	osiShortRe = regexp.MustCompile(`^([A-Z.$^]{1,6})(\d{6})([CP])(\d{1,5})(?:\.(\d{1,3}))?$`)
	// padded form: SPXW241115P05895000
	osiLongRe = regexp.MustCompile(`^([A-Z.$^]{1,6})(\d{6})([CP])(\d{8})$`)
	stripRe   = regexp.MustCompile(`[^A-Z0-9.$^]`)
)

// ParseOSI parses the symbol variants brokers and signal feeds emit:
// canonical padded 21-char symbols, dotted shorthand (".SPXW241115P5895"),
// and underscore-separated forms ("SPXW_241115P05895000").
func ParseOSI(sym string) (OSI, error) {
	raw := strings.ToUpper(strings.TrimSpace(sym))
	raw = strings.TrimPrefix(raw, ".")
	raw = stripRe.ReplaceAllString(raw, "")

	m := osiShortRe.FindStringSubmatch(raw)
	if m == nil {
		m = osiLongRe.FindStringSubmatch(raw)
	}
	if m == nil {
		return OSI{}, fmt.Errorf("condor: cannot parse option symbol %q", sym)
	}

	root, ymd, cp, strike := m[1], m[2], m[3], m[4]
	frac := ""
	if len(m) > 5 {
		frac = m[5]
	}

	var millis int
	if len(strike) == 8 && frac == "" {
		millis, _ = strconv.Atoi(strike)
	} else {
		whole, _ := strconv.Atoi(strike)
		fracMillis := 0
		if frac != "" {
			f, _ := strconv.Atoi(frac + strings.Repeat("0", 3-len(frac)))
			fracMillis = f
		}
		millis = whole*1000 + fracMillis
	}

	return OSI{Root: root, Expiry: ymd, Right: domain.OptionRight(cp), Millis: millis}, nil
}

// String renders the canonical 21-character symbol: root padded to 6, yymmdd,
// right, strike millis zero-padded to 8.
func (o OSI) String() string {
	return fmt.Sprintf("%-6s%s%s%08d", o.Root, o.Expiry, o.Right, o.Millis)
}

// Canon is the leg identity key: expiry, right, and strike, ignoring the
// root so that e.g. SPX and SPXW listings of the same contract collide.
func (o OSI) Canon() string {
	return fmt.Sprintf("%s%s%08d", o.Expiry, o.Right, o.Millis)
}

// Strike returns the strike price in dollars.
func (o OSI) Strike() float64 {
	return float64(o.Millis) / 1000.0
}

// Canon parses sym and returns its identity key.
func Canon(sym string) (string, error) {
	o, err := ParseOSI(sym)
	if err != nil {
		return "", err
	}
	return o.Canon(), nil
}

// FromParts builds an OSI from already-normalized components. strike is in
// dollars and must be a whole-millis value.
func FromParts(root, yymmdd string, right domain.OptionRight, strike float64) OSI {
	return OSI{Root: root, Expiry: yymmdd, Right: right, Millis: int(strike*1000 + 0.5)}
}
