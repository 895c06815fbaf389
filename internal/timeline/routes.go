package timeline

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/claims"
)

// response pairs the annotated entries with the gap counter shown in the
// timeline header.
type response struct {
	Entries  []Entry `json:"entries"`
	GapCount int     `json:"gap_count"`
}

// RegisterRoutes mounts the service timeline endpoint.
func RegisterRoutes(r chi.Router, store *claims.Store) {
	r.Get("/api/runs/{runID}/timeline", timelineHandler(store))
}

func timelineHandler(store *claims.Store) http.HandlerFunc {
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

		entries, gapCount := Build(snap.ServiceEntries)
		writeJSON(w, http.StatusOK, response{Entries: entries, GapCount: gapCount})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
