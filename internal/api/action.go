package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/qrparty/partyroom/internal/action"
	"github.com/qrparty/partyroom/internal/party"
)

// rateLimitedMessage is what a throttled caller sees. Transient and
// user-correctable: wait out the window and try again.
const rateLimitedMessage = "Too many actions. Slow down 🙂"

type actionRequest struct {
	Action   string `json:"action"`
	Name     string `json:"name,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Code     string `json:"code,omitempty"`
}

type joinResponse struct {
	PlayerID string `json:"playerId"`
}

type triggerResponse struct {
	OK    bool        `json:"ok"`
	Patch party.Patch `json:"patch"`
}

// handleAction handles POST /api/v1/action: the single entry point for
// join and trigger requests.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Unknown action", nil)
		return
	}

	switch req.Action {
	case "join":
		playerID, err := s.actions.Join(r.Context(), req.Name, req.PlayerID)
		if err != nil {
			s.writeActionError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, joinResponse{PlayerID: playerID})

	case "trigger":
		patch, err := s.actions.Trigger(r.Context(), req.PlayerID, req.Code)
		if err != nil {
			s.writeActionError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, triggerResponse{OK: true, Patch: patch})

	default:
		s.writeError(w, http.StatusBadRequest, "Unknown action", nil)
	}
}

// writeActionError maps processor errors onto HTTP status codes:
// user-correctable input gets 400, throttling 429, anything else 500.
func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, action.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, "Invalid name", nil)
	case errors.Is(err, action.ErrMissingFields):
		s.writeError(w, http.StatusBadRequest, "Missing playerId/code", nil)
	case errors.Is(err, action.ErrUnknownCode):
		s.writeError(w, http.StatusBadRequest, "Unknown code", nil)
	case errors.Is(err, action.ErrRateLimited):
		s.writeError(w, http.StatusTooManyRequests, rateLimitedMessage, nil)
	default:
		s.writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
