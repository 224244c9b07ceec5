package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks open notification sockets per user.
type Hub struct {
	mu     sync.RWMutex
	conns  map[int64]map[*Connection]struct{}
	logger *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{conns: make(map[int64]map[*Connection]struct{}), logger: logger}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[conn.UserID()]
	if !ok {
		set = make(map[*Connection]struct{})
		h.conns[conn.UserID()] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[conn.UserID()]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.conns, conn.UserID())
	}
}

// Push sends payload to every socket of the user and returns how many accepted it.
func (h *Hub) Push(userID int64, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for conn := range h.conns[userID] {
		if conn.Send(payload) {
			delivered++
		}
	}
	return delivered
}

// Connected reports how many sockets the user holds.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]*Connection, 0)
	for _, set := range h.conns {
		for conn := range set {
			all = append(all, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range all {
		conn.Close()
	}
}
