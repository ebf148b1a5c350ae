package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsClient is one connected dashboard.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans state updates out to connected WebSocket clients. A slow
// client is dropped instead of back-pressuring the tick loop.
type Hub struct {
	clients   map[*wsClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	mu        sync.Mutex
	closed    bool
	logger    *zap.Logger
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		clients:   make(map[*wsClient]bool),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		for c := range h.clients {
			select {
			case c.send <- msg:
			default:
				close(c.send)
				delete(h.clients, c)
				h.logger.Warn("dropped slow websocket client")
			}
		}
		h.mu.Unlock()
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", zap.Int("clients", count))

	go client.writePump()
	go h.readPump(client)
}

// readPump discards inbound frames and unregisters on close. The feed is
// one-way; reading is only needed to notice disconnects.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// Name implements Publisher.
func (h *Hub) Name() string {
	return "websocket"
}

// Publish implements Publisher. Updates are dropped when the broadcast
// buffer is full rather than blocking the caller.
func (h *Hub) Publish(_ context.Context, update *StateUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	select {
	case h.broadcast <- data:
		return nil
	default:
		h.logger.Warn("websocket broadcast buffer full, dropping update")
		return nil
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and stops the broadcast loop.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	close(h.broadcast)
	return nil
}
