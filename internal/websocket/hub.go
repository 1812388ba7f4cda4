package websocket

import (
	"sync"

	"conflict-resolution-be/internal/pkg/logger"
)

type Hub struct {
	// Registered clients map: stream id -> watchers of that stream
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Lock for safe map access
	mu sync.RWMutex

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		logger:     log,
	}
}

// Run serves register and unregister requests until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.StreamID] = append(h.clients[client.StreamID], client)
			count := len(h.clients[client.StreamID])
			h.mu.Unlock()
			h.logger.Info("Hub", "Watcher registered", map[string]interface{}{
				"stream_id": client.StreamID,
				"driving":   client.Driving,
				"watchers":  count,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.StreamID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.StreamID] = append(clients[:i], clients[i+1:]...)
						client.close()
						break
					}
				}
				if len(h.clients[client.StreamID]) == 0 {
					delete(h.clients, client.StreamID)
					h.logger.Info("Hub", "Last watcher left", map[string]interface{}{"stream_id": client.StreamID})
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Watchers returns the number of connected clients for one stream.
func (h *Hub) Watchers(streamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[streamID])
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters c and closes its Send channel. Removing twice is a no-op.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
