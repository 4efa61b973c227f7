package execution

import (
	"fmt"
	"strconv"

	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type ExecutionController struct {
	Service ExecutionService
}

func NewExecutionController(service ExecutionService) *ExecutionController {
	return &ExecutionController{Service: service}
}

func filterFrom(c *fiber.Ctx) Filter {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	return Filter{
		CampaignID:  c.Query("campaign_id"),
		RecipientID: c.Query("recipient_id"),
		Status:      c.Query("status"),
		Limit:       limit,
	}
}

// List godoc
// @Summary List execution states
// @Tags executions
// @Produce json
// @Param campaign_id query string false "Campaign ID"
// @Param recipient_id query string false "Recipient ID"
// @Param status query string false "active, waiting, stopped or completed"
// @Param limit query int false "Max results"
// @Success 200 {array} state.State
// @Router /api/executions [get]
func (ctrl *ExecutionController) List(c *fiber.Ctx) error {
	states, err := ctrl.Service.List(c.UserContext(), filterFrom(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(states)
}

// Get godoc
// @Summary Get one execution state
// @Tags executions
// @Produce json
// @Param campaignId path string true "Campaign ID"
// @Param recipientId path string true "Recipient ID"
// @Success 200 {object} state.State
// @Failure 404 {object} map[string]interface{}
// @Router /api/executions/{campaignId}/{recipientId} [get]
func (ctrl *ExecutionController) Get(c *fiber.Ctx) error {
	st, err := ctrl.Service.Get(c.UserContext(), c.Params("recipientId"), c.Params("campaignId"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(st)
}

// Export godoc
// @Summary Export execution states to XLSX
// @Tags executions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param campaign_id query string false "Campaign ID"
// @Param recipient_id query string false "Recipient ID"
// @Param status query string false "Status"
// @Success 200 {file} file
// @Router /api/executions/export [get]
func (ctrl *ExecutionController) Export(c *fiber.Ctx) error {
	filter := filterFrom(c)
	filter.Limit = 0

	data, filename, err := ctrl.Service.Export(c.UserContext(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(data)
}
