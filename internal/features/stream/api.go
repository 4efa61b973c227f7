package stream

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type StreamApi struct {
	Controller *StreamController
}

func NewStreamApi(controller *StreamController) api.Route {
	return &StreamApi{
		Controller: controller,
	}
}

func (h *StreamApi) Setup(app *fiber.App) {
	app.Use("/api/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/ws/executions", websocket.New(h.Controller.HandleWebSocket))
}
