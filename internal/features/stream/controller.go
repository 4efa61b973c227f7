package stream

import (
	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type StreamController struct {
	Hub    *Hub
	Logger *zap.Logger
}

func NewStreamController(hub *Hub, logger *zap.Logger) *StreamController {
	return &StreamController{Hub: hub, Logger: logger}
}

// HandleWebSocket streams feed events until the client disconnects.
// Incoming messages are read and ignored.
func (h *StreamController) HandleWebSocket(c *websocket.Conn) {
	cl := h.Hub.register()
	defer h.Hub.unregister(cl)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Logger.Debug("Feed write failed", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
