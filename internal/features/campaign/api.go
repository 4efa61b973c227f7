package campaign

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type CampaignApi struct {
	controller *CampaignController
}

func NewCampaignApi(controller *CampaignController) api.Route {
	return &CampaignApi{
		controller: controller,
	}
}

func (h *CampaignApi) Setup(app *fiber.App) {
	group := app.Group("/api/campaigns")

	group.Get("/", h.controller.ListCampaigns)
	group.Get("/:id", h.controller.GetCampaign)
	group.Post("/", h.controller.CreateCampaign)
	group.Put("/:id", h.controller.UpdateCampaign)
	group.Delete("/:id", h.controller.DeleteCampaign)
	group.Post("/:id/enroll", h.controller.Enroll)
	group.Post("/:id/advance", h.controller.Advance)
	group.Post("/:id/stop", h.controller.Stop)
	group.Post("/:id/audience", h.controller.EnrollAudience)
}
