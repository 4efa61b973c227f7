package scheduler

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type SchedulerController struct {
	Service SchedulerService
}

func NewSchedulerController(service SchedulerService) *SchedulerController {
	return &SchedulerController{
		Service: service,
	}
}

// Tick godoc
// @Summary Run one scheduler tick
// @Description Resumes due deferred actions and waiting executions now
// @Tags scheduler
// @Produce json
// @Success 200 {object} TickLog
// @Failure 500 {object} map[string]interface{}
// @Router /api/scheduler/tick [post]
func (ctrl *SchedulerController) Tick(c *fiber.Ctx) error {
	entry, err := ctrl.Service.Tick(c.UserContext(), "manual")
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(entry)
}

// ListTicks godoc
// @Summary List scheduler ticks
// @Tags scheduler
// @Produce json
// @Param limit query int false "Max ticks to return"
// @Success 200 {array} TickLog
// @Router /api/scheduler/ticks [get]
func (ctrl *SchedulerController) ListTicks(c *fiber.Ctx) error {
	ticks, err := ctrl.Service.ListTicks(c.UserContext(), int64(c.QueryInt("limit", 50)))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(ticks)
}
