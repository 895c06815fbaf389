package audit

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// routeActions maps mutating route patterns to audit actions. Routes not
// listed here are not audited.
var routeActions = map[string]Action{
	"/api/claims":                     ActionClaimCreated,
	"/api/claims/{claimID}/runs":      ActionSnapshotIngested,
	"/api/claims/{claimID}/notes":     ActionNoteAdded,
	"/api/runs/{runID}/ledger/toggle": ActionLedgerToggled,
	"/api/runs/{runID}/ledger/reset":  ActionLedgerReset,
	"/api/runs/{runID}/progress":      ActionProgressPosted,
}

// Middleware records successful mutating API calls in the audit trail.
// The reviewer identity comes from the X-Reviewer header; requests without
// one are attributed to the system (backend integrations, batch loaders).
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= 400 {
				return
			}

			rctx := chi.RouteContext(r.Context())
			if rctx == nil {
				return
			}
			action, ok := routeActions[rctx.RoutePattern()]
			if !ok {
				return
			}

			entry := Entry{
				ActorType: ActorSystem,
				Action:    action,
				ClaimID:   rctx.URLParam("claimID"),
				RunID:     rctx.URLParam("runID"),
				Summary:   r.Method + " " + r.URL.Path,
			}
			if reviewer := r.Header.Get("X-Reviewer"); reviewer != "" {
				entry.ActorType = ActorUser
				entry.ActorID = reviewer
			}

			if err := store.Log(r.Context(), entry); err != nil {
				log.Printf("audit: recording %s: %v", action, err)
			}
		})
	}
}
