package stream

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const clientBuffer = 64

// Hub fans feed events out to connected websocket clients. A client whose
// buffer is full misses events rather than slowing the engine down.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *zap.Logger
}

type client struct {
	send chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: map[*client]struct{}{},
		logger:  logger,
	}
}

func (h *Hub) register() *client {
	c := &client{send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Publish(_ context.Context, ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("Feed event not encodable", zap.Error(err), zap.String("type", string(ev.Type)))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("Feed client lagging, event dropped", zap.String("type", string(ev.Type)))
		}
	}
}
