package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      Dispatcher
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Host screens and phones are served from other origins
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request. The connection joins a room only once it
// sends createRoom, joinRoom or rejoinRoom.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, h.hub, h.logger)

	h.logger.Info("websocket connected",
		"connID", client.ID(),
		"remoteAddr", r.RemoteAddr,
	)

	client.Run()

	h.logger.Info("websocket disconnected", "connID", client.ID())
}
