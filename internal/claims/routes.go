package claims

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/conflicts"
)

// RegisterRoutes mounts the claim and snapshot API endpoints.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/claims", listClaimsHandler(store))
	r.Post("/api/claims", createClaimHandler(store))
	r.Get("/api/claims/{claimID}", getClaimHandler(store))
	r.Get("/api/claims/{claimID}/runs", listRunsHandler(store))
	r.Post("/api/claims/{claimID}/runs", ingestHandler(store))
	r.Get("/api/runs/{runID}", getRunHandler(store))
	r.Get("/api/runs/{runID}/facts", factsHandler(store))
	r.Get("/api/runs/{runID}/conflicts", conflictsHandler(store))
}

func listClaimsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := store.ListClaims(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if results == nil {
			results = []Claim{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func createClaimHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c Claim
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if c.ClaimNumber == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "claim_number is required"})
			return
		}

		if err := store.CreateClaim(r.Context(), &c); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func getClaimHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, err := store.GetClaim(r.Context(), chi.URLParam(r, "claimID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if claim == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "claim not found"})
			return
		}
		writeJSON(w, http.StatusOK, claim)
	}
}

func listRunsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := store.ListRuns(r.Context(), chi.URLParam(r, "claimID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if runs == nil {
			runs = []Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func ingestHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid snapshot: " + err.Error()})
			return
		}

		run, err := store.IngestSnapshot(r.Context(), chi.URLParam(r, "claimID"), snap)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, run)
	}
}

func getRunHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := store.GetRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if run == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func factsHandler(store *Store) http.HandlerFunc {
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
		if snap.Facts == nil {
			writeJSON(w, http.StatusOK, []struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, snap.Facts)
	}
}

// conflictView pairs a normalized conflict with the per-value provenance
// labels the dashboard shows next to each candidate.
type conflictView struct {
	conflicts.Conflict
	SourceLabels []string `json:"source_labels"`
}

func conflictsHandler(store *Store) http.HandlerFunc {
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

		views := make([]conflictView, 0, len(snap.Conflicts))
		for _, c := range snap.Conflicts {
			labels := make([]string, len(c.Sources))
			for i, src := range c.Sources {
				labels[i] = conflicts.FormatSources(src)
			}
			views = append(views, conflictView{Conflict: c, SourceLabels: labels})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
