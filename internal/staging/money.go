package staging

import (
	"fmt"
	"strconv"
	"strings"
)

// DollarsToCents converts a decimal dollar amount, as the text the legacy
// store hands back, into integer cents.
//
// The legacy store's prices carry up to four decimal places. Rounding the
// thousandths digit with default float rounding lands exact half-cents on
// the nearest even cent, which systematically under-charged half the
// catalog; the correction is to round an exact 5 in the thousandths place
// up, and everything else to the nearest cent:
//
//	"12.345" -> 1235
//	"12.344" -> 1234
//	"12.346" -> 1235
//
// The conversion is done on the decimal text directly so no binary float
// ever enters the picture.
func DollarsToCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("parse amount %q: bad fraction", raw)
		}
	}

	cents := dollars * 100
	switch {
	case len(frac) >= 2:
		c, _ := strconv.ParseInt(frac[:2], 10, 64)
		cents += c
	case len(frac) == 1:
		c, _ := strconv.ParseInt(frac, 10, 64)
		cents += c * 10
	}

	// Thousandths digit decides the final cent. An exact 5 rounds up.
	if len(frac) >= 3 && frac[2] >= '5' {
		cents++
	}

	if neg {
		cents = -cents
	}
	return cents, nil
}

// GramsToMilligrams converts the legacy decimal gram weight to integer
// milligrams, rounding half up. Empty input is a zero weight.
func GramsToMilligrams(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	grams, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse weight %q: %w", raw, err)
	}
	mg := grams * 1000
	if frac != "" {
		// Take at most three fractional digits, zero-padded.
		digits := (frac + "000")[:3]
		f, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse weight %q: %w", raw, err)
		}
		mg += f
		if len(frac) > 3 && frac[3] >= '5' {
			mg++
		}
	}
	return mg, nil
}
