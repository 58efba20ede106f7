package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/watchtower/controlplane/internal/model"
)

// wsMessage is the envelope broadcast to every connected dashboard client.
type wsMessage struct {
	Type  string `json:"type"` // "event" or "alert"
	Event *model.UptimeEvent `json:"event,omitempty"`
	Alert *model.Alert       `json:"alert,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out appended events and queued alerts to connected websocket
// clients. It implements worker.EventBroadcaster. A worker with no connected
// clients still runs identically; Hub only ever drops, never blocks.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan wsMessage
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan wsMessage)}
}

// BroadcastEvent fans out a newly appended event to every connected client.
func (h *Hub) BroadcastEvent(e *model.UptimeEvent) {
	h.broadcast(wsMessage{Type: "event", Event: e})
}

// BroadcastAlert fans out a newly queued alert to every connected client.
func (h *Hub) BroadcastAlert(a *model.Alert) {
	h.broadcast(wsMessage{Type: "alert", Alert: a})
}

func (h *Hub) broadcast(msg wsMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Slow client: drop rather than block the pipeline.
		}
	}
}

// ServeHTTP upgrades the connection and streams messages until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := make(chan wsMessage, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		close(ch)
	}()

	go h.readLoop(conn)

	for msg := range ch {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop discards client frames but watches for disconnects/control frames
// so the write side notices a dead connection promptly.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}
