package readiness

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/claims"
	"github.com/claimdeck/claimdeck/internal/facts"
)

// summaryAliases maps each critical field to the fact-name aliases tried,
// in order, when resolving it for the summary view.
var summaryAliases = map[string][]string{
	"incident_date": {"incident_date", "accident_date", "date_of_incident"},
	"loss_date":     {"loss_date", "date_of_loss"},
	"policy_number": {"policy_number", "policy_no"},
	"vin":           {"vin", "chassis_number", "vehicle_identification_number"},
	"vehicle_make":  {"vehicle_make", "make"},
	"mileage":       {"mileage", "odometer", "km_reading"},
}

// FieldSummary is one critical field's resolved value and verification
// status, as shown in the claim header.
type FieldSummary struct {
	Field      string       `json:"field"`
	Value      string       `json:"value,omitempty"`
	Status     facts.Status `json:"status"`
	Confidence float64      `json:"confidence,omitempty"`
}

// RegisterRoutes mounts the readiness endpoints.
func RegisterRoutes(r chi.Router, store *claims.Store) {
	r.Get("/api/runs/{runID}/readiness", readinessHandler(store))
	r.Get("/api/runs/{runID}/summary", summaryHandler(store))
}

func readinessHandler(store *claims.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.Snapshot(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if snap == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}

		result := Compute(snap.Facts, snap.Checks, snap.Assumptions, snap.Documents)
		if result.BlockingIssues == nil {
			result.BlockingIssues = []BlockingIssue{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func summaryHandler(store *claims.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.Snapshot(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if snap == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}

		summaries := make([]FieldSummary, 0, len(CriticalFields))
		for _, field := range CriticalFields {
			value, fact := facts.Resolve(snap.Facts, summaryAliases[field]...)
			s := FieldSummary{
				Field:  field,
				Value:  value,
				Status: facts.Classify(value, fact),
			}
			if fact != nil {
				s.Confidence = fact.Confidence
			}
			summaries = append(summaries, s)
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
