package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveFeed streams every newly created detection to the viewer as JSON.
// The connection is read only to notice when the viewer goes away.
func (h *Handler) LiveFeed(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.writeDetail(w, http.StatusServiceUnavailable, "Live feed disabled")
		return
	}

	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade error: %v", err)
		return
	}

	connection.SetReadLimit(512)
	connection.SetReadDeadline(time.Now().Add(pongWait))
	connection.SetPongHandler(func(string) error {
		connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if !h.live.Register(connection) {
		connection.Close()
		return
	}
	defer h.live.Unregister(connection)

	stop := make(chan struct{})
	defer close(stop)
	go keepAlive(connection, stop)

	for {
		if _, _, err := connection.ReadMessage(); err != nil {
			return
		}
	}
}

// keepAlive pings the viewer; WriteControl is safe alongside the hub's writes.
func keepAlive(connection *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
