package review

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claimdeck/claimdeck/internal/claims"
)

// RegisterRoutes mounts the review note endpoints.
func RegisterRoutes(r chi.Router, store *Store, claimStore *claims.Store) {
	r.Get("/api/claims/{claimID}/notes", listNotesHandler(store, claimStore))
	r.Post("/api/claims/{claimID}/notes", createNoteHandler(store, claimStore))
}

func listNotesHandler(store *Store, claimStore *claims.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claimID")
		claim, err := claimStore.GetClaim(r.Context(), claimID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if claim == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "claim not found"})
			return
		}

		notes, err := store.List(r.Context(), claimID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if notes == nil {
			notes = []Note{}
		}

		if r.URL.Query().Get("format") == "html" {
			for i := range notes {
				html, err := store.RenderHTML(notes[i].Body)
				if err != nil {
					log.Printf("review: rendering note %s: %v", notes[i].ID, err)
					continue
				}
				notes[i].BodyHTML = html
			}
		}
		writeJSON(w, http.StatusOK, notes)
	}
}

func createNoteHandler(store *Store, claimStore *claims.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claimID")
		claim, err := claimStore.GetClaim(r.Context(), claimID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if claim == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "claim not found"})
			return
		}

		var n Note
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if n.Body == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body is required"})
			return
		}
		n.ClaimID = claimID

		if err := store.Create(r.Context(), &n); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
