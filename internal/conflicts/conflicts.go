// Package conflicts canonicalizes fact conflicts: fact names for which
// multiple source documents produced disagreeing values. The backend has
// shipped two source representations over time; both are accepted and
// normalized to the structured shape at the unmarshalling boundary.
package conflicts

import (
	"encoding/json"
	"fmt"
)

// legacyIDPreview is how many characters of a bare document ID are used
// when synthesizing a placeholder filename.
const legacyIDPreview = 12

// Source identifies one document that contributed a conflicting value.
type Source struct {
	DocID    string `json:"doc_id"`
	DocType  string `json:"doc_type"`
	Filename string `json:"filename"`
}

// SourceList is the per-value list of contributing documents. It accepts
// both wire shapes: an array of bare document-ID strings (legacy) and an
// array of structured source objects (current).
type SourceList []Source

// UnmarshalJSON normalizes either shape to []Source. Legacy bare IDs get
// doc_type "unknown" and a truncated-ID placeholder filename.
func (l *SourceList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}

	// Shape detection keys off the first element only: the backend never
	// mixes bare IDs and structured objects in one list.
	if len(raw[0]) > 0 && raw[0][0] == '"' {
		ids := make([]string, 0, len(raw))
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		out := make(SourceList, len(ids))
		for i, id := range ids {
			out[i] = legacySource(id)
		}
		*l = out
		return nil
	}

	var out []Source
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = SourceList(out)
	return nil
}

// legacySource builds a structured source from a bare document ID.
func legacySource(id string) Source {
	name := id
	if len(name) > legacyIDPreview {
		name = name[:legacyIDPreview]
	}
	return Source{
		DocID:    id,
		DocType:  "unknown",
		Filename: name + "...",
	}
}

// NormalizeSources converts a raw per-value sources array (as decoded from
// JSON) into the structured shape. It mirrors SourceList.UnmarshalJSON for
// callers holding already-decoded data.
func NormalizeSources(raw []any) SourceList {
	if len(raw) == 0 {
		return nil
	}
	if _, ok := raw[0].(string); ok {
		out := make(SourceList, 0, len(raw))
		for _, v := range raw {
			if id, ok := v.(string); ok {
				out = append(out, legacySource(id))
			}
		}
		return out
	}

	out := make(SourceList, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Source{
			DocID:    stringField(m, "doc_id"),
			DocType:  stringField(m, "doc_type"),
			Filename: stringField(m, "filename"),
		})
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Conflict is a fact name with multiple disagreeing extracted values.
// Sources[i] lists the documents that produced Values[i].
type Conflict struct {
	FactName           string       `json:"fact_name"`
	Values             []string     `json:"values"`
	Sources            []SourceList `json:"sources"`
	SelectedValue      string       `json:"selected_value"`
	SelectedConfidence float64      `json:"selected_confidence"`
	SelectionReason    string       `json:"selection_reason,omitempty"`
}

// IsSelected reports whether a candidate value is the backend-selected one.
// Plain string equality: textually identical duplicates all highlight.
func (c Conflict) IsSelected(value string) bool {
	return value == c.SelectedValue
}

// FormatSources renders a source list for display: "filename (doc_type)"
// for a single source, with a "+N more" suffix for additional ones.
func FormatSources(sources SourceList) string {
	if len(sources) == 0 {
		return ""
	}
	first := fmt.Sprintf("%s (%s)", sources[0].Filename, sources[0].DocType)
	if len(sources) == 1 {
		return first
	}
	return fmt.Sprintf("%s +%d more", first, len(sources)-1)
}
