package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qrparty/partyroom/internal/party"
)

const (
	// pingInterval keeps idle feed connections alive through proxies.
	pingInterval = 20 * time.Second

	// writeWait bounds a single frame write to a slow consumer.
	writeWait = 5 * time.Second

	// pongWait is how long a connection may go silent before it is
	// considered dead.
	pongWait = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed carries no credentials and CORS is already open for the
	// action endpoint; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleFeed handles GET /api/v1/feed?table=player_state&room=main: a
// WebSocket pushing {op, row} deltas for one room until the client hangs
// up or the hub stops.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if table := r.URL.Query().Get("table"); table != "" && table != "player_state" {
		s.writeError(w, http.StatusBadRequest, "unknown table", nil)
		return
	}
	room := r.URL.Query().Get("room")
	if room == "" {
		room = party.DefaultRoom
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(room)
	defer s.hub.Unsubscribe(sub)

	// Reader goroutine: the client sends nothing meaningful, but reading
	// is what surfaces close frames and keeps pong handling alive.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(1 << 20)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case change, ok := <-sub.Changes():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(change); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return

		case <-sub.Done():
			return
		}
	}
}
