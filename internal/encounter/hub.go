package encounter

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Envelope is the ws wire format: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChangePayload tells observers who acted. Nothing else: the content of the
// change never travels over the socket, observers re-fetch their projected
// view over HTTP.
type ChangePayload struct {
	GameID     string `json:"gameId"`
	ActingRole Role   `json:"actingRole"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// Hub tracks the ws subscribers of each session id and fans change
// notifications out to them.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*ClientConn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*ClientConn]struct{})}
}

func (h *Hub) Subscribe(sessionID string, c *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*ClientConn]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) Unsubscribe(sessionID string, c *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Broadcast implements Notifier.
func (h *Hub) Broadcast(sessionID string, actingRole Role) {
	env := Envelope{
		Type:    "game_changed",
		Payload: mustJSON(ChangePayload{GameID: sessionID, ActingRole: actingRole}),
	}
	b, _ := json.Marshal(env)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[sessionID] {
		select {
		case c.send <- b:
		default:
			// slow reader: drop, the client re-fetches on reconnect
		}
	}
}

func (h *Hub) sendTo(c *ClientConn, env Envelope) {
	b, _ := json.Marshal(env)
	select {
	case c.send <- b:
	default:
	}
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
