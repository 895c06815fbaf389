package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/claims"
)

// RegisterRoutes mounts the cost ledger endpoints. All three load the run
// first so the session rebuilds when the run has been re-ingested.
func RegisterRoutes(r chi.Router, store *claims.Store, sessions *SessionStore) {
	r.Get("/api/runs/{runID}/ledger", ledgerHandler(store, sessions))
	r.Post("/api/runs/{runID}/ledger/toggle", toggleHandler(store, sessions))
	r.Post("/api/runs/{runID}/ledger/reset", resetHandler(store, sessions))
}

// loadRun fetches run metadata and snapshot, writing the error response
// itself. The bool reports whether the caller may proceed.
func loadRun(w http.ResponseWriter, r *http.Request, store *claims.Store) (*claims.Run, *claims.Snapshot, bool) {
	runID := chi.URLParam(r, "runID")
	run, err := store.GetRun(r.Context(), runID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, nil, false
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return nil, nil, false
	}
	snap, err := store.Snapshot(r.Context(), runID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, nil, false
	}
	return run, snap, true
}

func ledgerHandler(store *claims.Store, sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, snap, ok := loadRun(w, r, store)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sessions.View(run.ID, run.IngestedAt, snap.Facts))
	}
}

func toggleHandler(store *claims.Store, sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ItemID string `json:"item_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_id is required"})
			return
		}

		run, snap, ok := loadRun(w, r, store)
		if !ok {
			return
		}
		view, found := sessions.Toggle(run.ID, run.IngestedAt, snap.Facts, body.ItemID)
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown line item: " + body.ItemID})
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func resetHandler(store *claims.Store, sessions *SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, snap, ok := loadRun(w, r, store)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sessions.Reset(run.ID, run.IngestedAt, snap.Facts))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
