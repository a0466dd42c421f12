package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/undercover-game/backend/internal/game"
	"github.com/undercover-game/backend/internal/hub"
	"github.com/undercover-game/backend/internal/room"
)

// RoomView exposes a read-only snapshot of one room for debugging and
// ops. It never creates a room: asking about a room nobody has touched
// is a 404, not a side effect.
func RoomView(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Name: name, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		viewReply := make(chan room.View, 1)
		rm.Inbox() <- room.GetState{Reply: viewReply}

		select {
		case view := <-viewReply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(struct {
				Phase       string `json:"phase"`
				Players     int    `json:"players"`
				Connections int    `json:"connections"`
				GameStarted bool   `json:"gameStarted"`
			}{
				Phase:       string(view.Phase),
				Players:     view.RoomSize,
				Connections: view.NumConns,
				GameStarted: view.Phase == game.PhaseInGame,
			})
		case <-time.After(2 * time.Second):
			http.Error(w, "room unresponsive", http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
