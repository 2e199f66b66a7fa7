package http

import (
	"log"
	"sync"

	"quiz-session-engine/internal/domain"
)

const clientQueueSize = 32

// Hub fans events out to the connections of every user attached to a session room.
// It implements app.Rooms. Sends never block: a connection whose queue is full is
// evicted and its queue closed, so it never silently misses an event.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*client]struct{}
	rooms map[string]map[string]struct{}
}

type client struct {
	userID string
	send   chan domain.Event
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*client]struct{}),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) register(userID string) *client {
	c := &client{userID: userID, send: make(chan domain.Event, clientQueueSize)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*client]struct{})
	}
	h.conns[userID][c] = struct{}{}
	return c
}

// unregister removes the connection and closes its queue. It reports whether the
// user has no other connection left.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
	return len(h.conns[c.userID]) == 0
}

func (h *Hub) removeLocked(c *client) {
	conns, ok := h.conns[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.conns, c.userID)
	}
	close(c.send)
}

// sendTo delivers an event to a single connection.
func (h *Hub) sendTo(c *client, event domain.Event) {
	h.mu.RLock()
	_, ok := h.conns[c.userID][c]
	full := ok && !enqueue(c.send, event)
	h.mu.RUnlock()
	if full {
		h.evict([]*client{c})
	}
}

func (h *Hub) Attach(code, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]struct{})
	}
	h.rooms[code][userID] = struct{}{}
}

func (h *Hub) Detach(code, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(h.rooms, code)
	}
}

func (h *Hub) Broadcast(code string, event domain.Event) {
	var slow []*client
	h.mu.RLock()
	for userID := range h.rooms[code] {
		for c := range h.conns[userID] {
			if !enqueue(c.send, event) {
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(slow) > 0 {
		h.evict(slow)
	}
}

func (h *Hub) Close(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Members returns the number of users attached to a room.
func (h *Hub) Members(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// evict drops connections that cannot keep up. Closing the queue ends the
// connection's writer, which closes the socket.
func (h *Hub) evict(clients []*client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range clients {
		if _, ok := h.conns[c.userID][c]; ok {
			log.Printf("evicting slow connection of %s", c.userID)
		}
		h.removeLocked(c)
	}
}

// enqueue reports false when the queue is full.
func enqueue(ch chan domain.Event, event domain.Event) bool {
	select {
	case ch <- event:
		return true
	default:
		return false
	}
}
