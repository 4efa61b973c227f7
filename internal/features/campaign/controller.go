package campaign

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type CampaignController struct {
	Service CampaignService
}

func NewCampaignController(service CampaignService) *CampaignController {
	return &CampaignController{
		Service: service,
	}
}

// CreateCampaign godoc
// @Summary Create campaign
// @Description Validates and stores a step graph. An empty id is generated.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param campaign body Campaign true "Campaign"
// @Success 201 {object} Campaign
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/campaigns [post]
func (ctrl *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var campaign Campaign
	if err := c.BodyParser(&campaign); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := ctrl.Service.CreateCampaign(c.UserContext(), &campaign); err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaign godoc
// @Summary Get campaign
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} Campaign
// @Failure 404 {object} map[string]interface{}
// @Router /api/campaigns/{id} [get]
func (ctrl *CampaignController) GetCampaign(c *fiber.Ctx) error {
	campaign, err := ctrl.Service.GetCampaign(c.UserContext(), c.Params("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(campaign)
}

// ListCampaigns godoc
// @Summary List campaigns
// @Tags campaigns
// @Produce json
// @Param active query bool false "Only active campaigns"
// @Success 200 {array} Campaign
// @Router /api/campaigns [get]
func (ctrl *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	campaigns, err := ctrl.Service.ListCampaigns(c.UserContext(), c.QueryBool("active"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(campaigns)
}

// UpdateCampaign godoc
// @Summary Update campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param campaign body Campaign true "Campaign"
// @Success 200 {object} Campaign
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/campaigns/{id} [put]
func (ctrl *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	var campaign Campaign
	if err := c.BodyParser(&campaign); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	campaign.ID = c.Params("id")

	if err := ctrl.Service.UpdateCampaign(c.UserContext(), &campaign); err != nil {
		return api.Error(c, err)
	}
	return c.JSON(campaign)
}

// DeleteCampaign godoc
// @Summary Delete campaign
// @Tags campaigns
// @Param id path string true "Campaign ID"
// @Success 204 {object} nil
// @Failure 404 {object} map[string]interface{}
// @Router /api/campaigns/{id} [delete]
func (ctrl *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteCampaign(c.UserContext(), c.Params("id")); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Enroll godoc
// @Summary Enroll a recipient
// @Description Starts the recipient at the start step and runs until it waits or finishes
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param body body EnrollRequest true "Recipient"
// @Success 200 {object} RunOutcome
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/campaigns/{id}/enroll [post]
func (ctrl *CampaignController) Enroll(c *fiber.Ctx) error {
	var req EnrollRequest
	if err := api.Bind(c, &req); err != nil {
		return api.Error(c, err)
	}

	out, err := ctrl.Service.Enroll(c.UserContext(), c.Params("id"), req.RecipientID, req.Facts)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(out)
}

// Advance godoc
// @Summary Advance a recipient
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param body body EnrollRequest true "Recipient"
// @Success 200 {object} RunOutcome
// @Failure 404 {object} map[string]interface{}
// @Router /api/campaigns/{id}/advance [post]
func (ctrl *CampaignController) Advance(c *fiber.Ctx) error {
	var req EnrollRequest
	if err := api.Bind(c, &req); err != nil {
		return api.Error(c, err)
	}

	out, err := ctrl.Service.Advance(c.UserContext(), c.Params("id"), req.RecipientID, req.Facts)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(out)
}

// Stop godoc
// @Summary Stop a recipient's sequence
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param body body StopRequest true "Recipient"
// @Success 200 {object} state.State
// @Failure 404 {object} map[string]interface{}
// @Router /api/campaigns/{id}/stop [post]
func (ctrl *CampaignController) Stop(c *fiber.Ctx) error {
	var req StopRequest
	if err := api.Bind(c, &req); err != nil {
		return api.Error(c, err)
	}

	st, err := ctrl.Service.Stop(c.UserContext(), c.Params("id"), req.RecipientID, req.Reason)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(st)
}

// EnrollAudience godoc
// @Summary Enroll every matching contact
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param body body AudienceRequest true "Audience conditions"
// @Success 200 {object} AudienceResult
// @Failure 400 {object} map[string]interface{}
// @Router /api/campaigns/{id}/audience [post]
func (ctrl *CampaignController) EnrollAudience(c *fiber.Ctx) error {
	var req AudienceRequest
	if err := api.Bind(c, &req); err != nil {
		return api.Error(c, err)
	}

	res, err := ctrl.Service.EnrollAudience(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(res)
}
