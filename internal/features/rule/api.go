package rule

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type RuleApi struct {
	controller *RuleController
}

func NewRuleApi(controller *RuleController) api.Route {
	return &RuleApi{
		controller: controller,
	}
}

func (h *RuleApi) Setup(app *fiber.App) {
	group := app.Group("/api/automation")

	group.Get("/rules", h.controller.ListRules)
	group.Get("/rules/:id", h.controller.GetRule)
	group.Post("/rules", h.controller.CreateRule)
	group.Put("/rules/:id", h.controller.UpdateRule)
	group.Delete("/rules/:id", h.controller.DeleteRule)
	group.Post("/rules/:id/active", h.controller.SetActive)
	group.Post("/rules/:id/dry-run", h.controller.DryRun)
	group.Post("/triggers", h.controller.Trigger)
}
