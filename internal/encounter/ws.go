package encounter

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // same-origin frontend is embedded
}

// handleWS subscribes a client to a session's change feed: GET /ws/{gameId}
// with a bearer token (header or ?token=). Participants get their projected
// view pushed once on connect; after that the socket only carries
// game_changed pings and the client re-fetches over HTTP.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	gameID, ok := sessionIDFromWSPath(r.URL.Path)
	if !ok {
		http.Error(w, "missing or malformed game id", http.StatusBadRequest)
		return
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Observers don't have to be participants, but the session must exist.
	g, role, err := s.svc.Resolve(r.Context(), gameID, claims.Email)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cc := &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
	s.hub.Subscribe(gameID, cc)

	// writer loop
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					return
				}
				_ = ws.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				_ = ws.WriteMessage(websocket.PingMessage, []byte{})
			}
		}
	}()

	// initial state for participants
	if role != RoleNone {
		if view, err := Project(role, g); err == nil {
			s.hub.sendTo(cc, Envelope{Type: "state", Payload: mustJSON(view)})
		}
	}

	// reader loop: mutations go over HTTP, so inbound frames are only read to
	// notice the disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unsubscribe(gameID, cc)
	cc.Close()
}

// sessionIDFromWSPath extracts the game id from /ws/{id}. Ids are short
// lowercase base36 strings, same charset newSessionID emits.
func sessionIDFromWSPath(path string) (string, bool) {
	const prefix = "/ws/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return "", false
	}
	id := path[len(prefix):]
	if !validSessionID(id) {
		return "", false
	}
	return id, true
}

func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
