package livefeed

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes mounts the progress ingestion and subscription endpoints.
func RegisterRoutes(r chi.Router, hub *Hub) {
	r.Post("/api/runs/{runID}/progress", publishHandler(hub))
	r.Get("/ws/runs/{runID}", subscribeHandler(hub))
}

func publishHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event: " + err.Error()})
			return
		}
		if e.Stage == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stage is required"})
			return
		}

		hub.Publish(chi.URLParam(r, "runID"), e)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func subscribeHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("livefeed: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		runID := chi.URLParam(r, "runID")
		events, cancel := hub.Subscribe(runID)
		defer cancel()

		// Drain client frames so disconnects unsubscribe promptly. The
		// dashboard never sends payloads we act on.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Printf("livefeed: websocket read: %v", err)
					}
					cancel()
					return
				}
			}
		}()

		for e := range events {
			if err := conn.WriteJSON(e); err != nil {
				log.Printf("livefeed: websocket write: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
