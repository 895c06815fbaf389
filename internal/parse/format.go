package parse

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Formatting is fixed to de-CH presentation conventions and is one-way:
// formatted strings are never parsed back.

// FormatAmount renders an amount as "CHF 1'234.50".
func FormatAmount(amount float64) string {
	neg := amount < 0
	cents := int64(math.Round(math.Abs(amount) * 100))
	whole := cents / 100
	frac := cents % 100

	grouped := groupThousands(whole)
	if neg {
		return fmt.Sprintf("CHF -%s.%02d", grouped, frac)
	}
	return fmt.Sprintf("CHF %s.%02d", grouped, frac)
}

// FormatDate renders a date as DD.MM.YYYY.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatMileage renders a mileage reading as "45'000 km".
func FormatMileage(km int) string {
	if km < 0 {
		return "-" + groupThousands(int64(-km)) + " km"
	}
	return groupThousands(int64(km)) + " km"
}

// groupThousands inserts apostrophe separators into a non-negative integer.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, '\'')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
