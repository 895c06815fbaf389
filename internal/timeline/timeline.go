// Package timeline orders a vehicle's service history and flags
// implausible gaps between consecutive entries.
package timeline

import (
	"math"
	"sort"
	"time"

	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/parse"
)

// Gap thresholds. A transition exceeding both counts twice; the shared
// counter treats the axes as independent conditions.
const (
	MaxIntervalDays = 365
	MaxIntervalKm   = 30000
)

// Entry is one service record annotated with parse results and the gap to
// the next-newer entry. Display fields fall back to the raw input when
// parsing fails.
type Entry struct {
	claims.ServiceEntry
	DateDisplay    string `json:"date_display"`
	MileageDisplay string `json:"mileage_display"`
	GapDays        int    `json:"gap_days,omitempty"`
	GapKm          int    `json:"gap_km,omitempty"`
	TimeGap        bool   `json:"time_gap,omitempty"`
	MileageGap     bool   `json:"mileage_gap,omitempty"`

	date       time.Time
	hasDate    bool
	mileage    int
	hasMileage bool
}

// Build sorts service entries newest-first and annotates adjacent-pair
// gaps. The returned count increments once per exceeded threshold, so a
// single transition breaching both time and mileage contributes two.
func Build(entries []claims.ServiceEntry) ([]Entry, int) {
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		entry := Entry{ServiceEntry: e, DateDisplay: e.Date, MileageDisplay: e.Mileage}
		if d, ok := parse.Date(e.Date); ok {
			entry.date = d
			entry.hasDate = true
			entry.DateDisplay = parse.FormatDate(d)
		}
		if m, ok := parse.Mileage(e.Mileage); ok {
			entry.mileage = m
			entry.hasMileage = true
			entry.MileageDisplay = parse.FormatMileage(m)
		}
		result = append(result, entry)
	}

	// Newest first. Pairs without dates fall back to mileage; pairs
	// without either keep their original relative order.
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.hasDate && b.hasDate {
			return a.date.After(b.date)
		}
		if a.hasMileage && b.hasMileage {
			return a.mileage > b.mileage
		}
		return false
	})

	gapCount := 0
	for i := 1; i < len(result); i++ {
		newer, older := &result[i-1], &result[i]

		if newer.hasDate && older.hasDate {
			days := int(math.Ceil(math.Abs(newer.date.Sub(older.date).Hours()) / 24))
			older.GapDays = days
			if days > MaxIntervalDays {
				older.TimeGap = true
				gapCount++
			}
		}
		if newer.hasMileage && older.hasMileage {
			km := newer.mileage - older.mileage
			if km < 0 {
				km = -km
			}
			older.GapKm = km
			if km > MaxIntervalKm {
				older.MileageGap = true
				gapCount++
			}
		}
	}
	return result, gapCount
}
