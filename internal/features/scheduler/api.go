package scheduler

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type SchedulerApi struct {
	controller *SchedulerController
}

func NewSchedulerApi(controller *SchedulerController) api.Route {
	return &SchedulerApi{
		controller: controller,
	}
}

func (h *SchedulerApi) Setup(app *fiber.App) {
	group := app.Group("/api/scheduler")

	group.Post("/tick", h.controller.Tick)
	group.Get("/ticks", h.controller.ListTicks)
}
