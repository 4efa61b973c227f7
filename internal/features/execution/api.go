package execution

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type ExecutionApi struct {
	controller *ExecutionController
}

func NewExecutionApi(controller *ExecutionController) api.Route {
	return &ExecutionApi{
		controller: controller,
	}
}

func (h *ExecutionApi) Setup(app *fiber.App) {
	executions := app.Group("/api/executions")

	executions.Get("/", h.controller.List)
	executions.Get("/export", h.controller.Export)
	executions.Get("/:campaignId/:recipientId", h.controller.Get)
}
