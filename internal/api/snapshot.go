package api

import (
	"net/http"

	"github.com/qrparty/partyroom/internal/party"
)

// handlePlayers handles GET /api/v1/players: the identity snapshot used
// by clients to join state rows with names and avatars.
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	if players == nil {
		players = []party.Player{}
	}
	s.writeJSON(w, http.StatusOK, players)
}

// handleState handles GET /api/v1/state?room=main: the cold state
// snapshot for one room.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = party.DefaultRoom
	}

	states, err := s.store.ListRoomState(r.Context(), room)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	if states == nil {
		states = []party.StateRow{}
	}
	s.writeJSON(w, http.StatusOK, states)
}
