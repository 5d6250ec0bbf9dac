// Package notify is the fire-and-forget notification channel the core emits
// events on. The SSE hub keeps a registry of live connections keyed by
// connection id; delivery is best effort with no acknowledgement.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Notifier is the contract consumed by the services. Broadcast reaches every
// connected client, SendToUser only that user's connections.
type Notifier interface {
	Broadcast(event Event)
	SendToUser(userID int64, event Event)
}

type connection struct {
	userID int64
	events chan Event
}

type SSEHub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*connection
}

func NewSSEHub() *SSEHub {
	return &SSEHub{conns: make(map[uuid.UUID]*connection)}
}

// Register adds a connection for the user and returns its id plus the channel
// the transport should drain.
func (h *SSEHub) Register(userID int64) (uuid.UUID, <-chan Event) {
	id := uuid.New()
	conn := &connection{userID: userID, events: make(chan Event, 16)}

	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	return id, conn.events
}

func (h *SSEHub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	if conn, ok := h.conns[id]; ok {
		close(conn.events)
		delete(h.conns, id)
	}
	h.mu.Unlock()
}

func (h *SSEHub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *SSEHub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.conns {
		send(conn, event)
	}
}

func (h *SSEHub) SendToUser(userID int64, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.conns {
		if conn.userID == userID {
			send(conn, event)
		}
	}
}

// Slow consumers lose events rather than block the sender.
func send(conn *connection, event Event) {
	select {
	case conn.events <- event:
	default:
	}
}
