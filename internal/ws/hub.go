package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type FeedMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans duel lifecycle events out to websocket subscribers of the live
// feed. It implements the duel service's Notifier.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) AddConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn] = true
	log.Printf("ws: feed client connected (total: %d)", len(h.conns))
}

func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
		log.Printf("ws: feed client disconnected (total: %d)", len(h.conns))
	}
}

// Notify broadcasts one duel lifecycle event to every subscriber.
func (h *Hub) Notify(event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg, err := json.Marshal(FeedMessage{Type: event, Data: data})
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("ws: write error: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
