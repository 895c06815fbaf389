// Package parse provides locale-tolerant parsers for the free-form value
// strings the extraction backend produces: currency amounts, dates, and
// mileage readings. All parsers are total; malformed input yields a false
// second return, never an error or panic.
package parse

import (
	"strconv"
	"strings"
	"time"
)

// currencySymbols are stripped before numeric parsing.
var currencySymbols = []string{"CHF", "€", "$", "£"}

// Amount parses a currency amount from free-form text. It accepts Swiss
// (1'234.50), German (1.234,50), and plain (1234.50) notations, with or
// without a currency symbol.
func Amount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}

	// Apostrophes and spaces only ever appear as thousands separators.
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	// A comma marks the decimal separator; any dots before it are
	// thousands separators (1.234,50 -> 1234.50).
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// dateLayouts are tried in order. The slash form is treated as day-first;
// ambiguous MM/DD inputs are not validated against calendar plausibility.
var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"02/01/2006",
}

// fallbackLayouts cover timestamps the backend occasionally emits instead
// of plain dates.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Date parses a date from free-form text, trying DD.MM.YYYY, YYYY-MM-DD,
// and DD/MM/YYYY before falling back to generic timestamp layouts.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Mileage parses a mileage reading by stripping every non-digit character.
// "45'000 km" and "45000" both yield 45000.
func Mileage(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
