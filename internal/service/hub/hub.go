// Package hub fans out newly stored detections to connected websocket viewers.
package hub

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"plateserver/internal/logger"
)

const (
	writeWait      = 5 * time.Second
	broadcastQueue = 64
)

// Hub owns the set of viewer connections. Only the Run goroutine writes to
// a connection.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	logger     *logger.Logger
	viewers    prometheus.Gauge
}

// New creates a hub. viewers may be nil.
func New(logger *logger.Logger, viewers prometheus.Gauge) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		viewers:    viewers,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every remaining connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.updateViewers()
			h.logger.Info("Viewer connected. Total: %d", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Info("Viewer disconnected. Total: %d", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *websocket.Conn) {
	delete(h.clients, client)
	client.Close()
	h.updateViewers()
}

func (h *Hub) updateViewers() {
	if h.viewers != nil {
		h.viewers.Set(float64(len(h.clients)))
	}
}

// Register adds a viewer. It returns false once the hub has stopped.
func (h *Hub) Register(client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer without blocking the caller.
// Messages are dropped when the queue is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Live feed queue full, dropping message")
	}
}
