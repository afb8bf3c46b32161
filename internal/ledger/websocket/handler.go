package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/trigg3rX/cipherwork/pkg/logging"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logging.Logger
}

func NewHandler(hub *Hub, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "websocket_handler"),
	}
}

// Serve upgrades the request and attaches the connection to the hub
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warnf("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(conn, h.hub, h.logger)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "shutting down"))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
