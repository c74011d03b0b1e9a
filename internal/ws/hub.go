package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Hub manages active WebSocket connections keyed by user ID and provides
// helper methods to broadcast events to one or more users.
type Hub struct {
	mu       sync.RWMutex
	conns    map[int64]map[*websocket.Conn]struct{}
	connsGau prometheus.Gauge
}

func NewHub(connections prometheus.Gauge) *Hub {
	return &Hub{
		conns:    make(map[int64]map[*websocket.Conn]struct{}),
		connsGau: connections,
	}
}

// Register adds a connection for the given user.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
	if h.connsGau != nil {
		h.connsGau.Inc()
	}
}

// Unregister removes a connection for the given user.
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[userID]; ok {
		if _, present := conns[conn]; present {
			delete(conns, conn)
			if h.connsGau != nil {
				h.connsGau.Dec()
			}
		}
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// IsConnected reports whether the user has at least one live connection.
func (h *Hub) IsConnected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// BroadcastToUsers sends the given payload to all active connections of the
// provided user IDs. Connections that fail will be cleaned up.
func (h *Hub) BroadcastToUsers(userIDs []int64, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		conns, ok := h.conns[uid]
		if !ok {
			continue
		}
		for conn := range conns {
			if err := conn.WriteJSON(payload); err != nil {
				conn.Close()
				// actual removal is best-effort; it's okay if a stale conn lingers
			}
		}
	}
}

// BroadcastAll sends the payload to all connected users.
func (h *Hub) BroadcastAll(payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.conns {
		for conn := range conns {
			if err := conn.WriteJSON(payload); err != nil {
				conn.Close()
				// best-effort cleanup; hub will be updated on next Register/Unregister
			}
		}
	}
}
