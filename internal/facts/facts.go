// Package facts models the extracted data points of a claim run and
// resolves display labels to the best-matching fact record.
package facts

import (
	"encoding/json"
	"strings"
)

// MinVerifiedConfidence is the extraction confidence below which a fact is
// shown as assumed rather than verified. The threshold is a behavioral
// contract pending product sign-off; do not tune it here.
const MinVerifiedConfidence = 0.7

// Provenance identifies the document location a fact value was extracted
// from. A fact either traces back to exactly one document or has no
// provenance at all.
type Provenance struct {
	DocID     string `json:"doc_id"`
	DocType   string `json:"doc_type"`
	Page      *int   `json:"page,omitempty"`
	CharStart *int   `json:"char_start,omitempty"`
	CharEnd   *int   `json:"char_end,omitempty"`
	TextQuote string `json:"text_quote,omitempty"`
}

// Value is a fact value as delivered by the backend: a string, a list of
// strings, or null. It normalizes all three shapes to a string slice.
type Value []string

// UnmarshalJSON accepts string, []string, and null payloads.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*v = Value(list)
	return nil
}

// MarshalJSON renders the original backend shape: null for empty, a bare
// string for single values, an array otherwise.
func (v Value) MarshalJSON() ([]byte, error) {
	switch len(v) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(v[0])
	default:
		return json.Marshal([]string(v))
	}
}

// First returns the first non-empty entry, or "".
func (v Value) First() string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

// IsEmpty reports whether the value carries no usable content.
func (v Value) IsEmpty() bool {
	return v.First() == ""
}

// Fact is a single extracted data point for a claim run. Facts are
// immutable snapshots; a new run produces a new fact set.
type Fact struct {
	Name         string      `json:"name"`
	Value        Value       `json:"value"`
	Confidence   float64     `json:"confidence"`
	SelectedFrom *Provenance `json:"selected_from,omitempty"`
}

// Resolve finds the best-matching fact for a list of field-name aliases.
// Aliases are tried in order: first a case-insensitive exact name match,
// then a normalized substring match (lowercased, underscores stripped on
// both sides). The first fact with a non-empty value wins. Returns
// ("", nil) when nothing matches.
func Resolve(list []Fact, aliases ...string) (string, *Fact) {
	for _, alias := range aliases {
		for i := range list {
			f := &list[i]
			if strings.EqualFold(f.Name, alias) && !f.Value.IsEmpty() {
				return f.Value.First(), f
			}
		}
	}
	for _, alias := range aliases {
		needle := normalizeName(alias)
		if needle == "" {
			continue
		}
		for i := range list {
			f := &list[i]
			if strings.Contains(normalizeName(f.Name), needle) && !f.Value.IsEmpty() {
				return f.Value.First(), f
			}
		}
	}
	return "", nil
}

// normalizeName lowercases a field name and strips underscores so that
// "vehicle_make" matches "vehiclemake". The substring pass can produce
// false positives ("vin" inside "vintage"); that imprecision is part of
// the observed behavior and deliberately not guarded against.
func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "")
}

// Status classifies a resolved fact for summary views.
type Status string

const (
	StatusMissing Status = "missing"
	StatusAssumed Status = "assumed"
	StatusPresent Status = "present"
)

// Classify returns the verification status of a resolved value. A value is
// assumed when its confidence is below MinVerifiedConfidence or when it has
// no document provenance; both conditions drive the "needs verification"
// cue in the dashboard.
func Classify(value string, f *Fact) Status {
	if value == "" || f == nil {
		return StatusMissing
	}
	if f.Confidence < MinVerifiedConfidence || f.SelectedFrom == nil {
		return StatusAssumed
	}
	return StatusPresent
}
