package rule

import (
	"time"

	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type RuleController struct {
	Service RuleService
}

func NewRuleController(service RuleService) *RuleController {
	return &RuleController{
		Service: service,
	}
}

// CreateRule godoc
// @Summary Create automation rule
// @Description Validates and stores a rule. An empty id is generated.
// @Tags automation
// @Accept json
// @Produce json
// @Param rule body AutomationRule true "Automation Rule"
// @Success 201 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/automation/rules [post]
func (ctrl *RuleController) CreateRule(c *fiber.Ctx) error {
	var rule AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := ctrl.Service.CreateRule(c.UserContext(), &rule); err != nil {
		return api.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// GetRule godoc
// @Summary Get automation rule
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} AutomationRule
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [get]
func (ctrl *RuleController) GetRule(c *fiber.Ctx) error {
	rule, err := ctrl.Service.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(rule)
}

// ListRules godoc
// @Summary List automation rules
// @Description Lists rules in priority order, optionally for one trigger
// @Tags automation
// @Produce json
// @Param trigger query string false "Trigger name"
// @Success 200 {array} AutomationRule
// @Router /api/automation/rules [get]
func (ctrl *RuleController) ListRules(c *fiber.Ctx) error {
	rules, err := ctrl.Service.ListRules(c.UserContext(), c.Query("trigger"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rules)
}

// UpdateRule godoc
// @Summary Update automation rule
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body AutomationRule true "Automation Rule"
// @Success 200 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [put]
func (ctrl *RuleController) UpdateRule(c *fiber.Ctx) error {
	var rule AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	rule.ID = c.Params("id")

	if err := ctrl.Service.UpdateRule(c.UserContext(), &rule); err != nil {
		return api.Error(c, err)
	}
	return c.JSON(rule)
}

// DeleteRule godoc
// @Summary Delete automation rule
// @Tags automation
// @Param id path string true "Rule ID"
// @Success 204 {object} nil
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [delete]
func (ctrl *RuleController) DeleteRule(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetActive godoc
// @Summary Activate or deactivate a rule
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param body body ActiveRequest true "Active flag"
// @Success 200 {object} AutomationRule
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/active [post]
func (ctrl *RuleController) SetActive(c *fiber.Ctx) error {
	var req ActiveRequest
	if err := api.Bind(c, &req); err != nil {
		return api.Error(c, err)
	}

	rule, err := ctrl.Service.SetActive(c.UserContext(), c.Params("id"), *req.IsActive)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(rule)
}

// DryRun godoc
// @Summary Evaluate a rule without side effects
// @Description Returns whether the rule matches the given facts and which actions it would select
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param body body DryRunRequest true "Facts"
// @Success 200 {object} rule.Result
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id}/dry-run [post]
func (ctrl *RuleController) DryRun(c *fiber.Ctx) error {
	var req DryRunRequest
	if err := api.Bind(c, &req); err != nil {
		return api.Error(c, err)
	}
	now := time.Now().UTC()
	if req.Now != nil {
		now = *req.Now
	}

	res, err := ctrl.Service.DryRun(c.UserContext(), c.Params("id"), req.Facts, now)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(res)
}

// Trigger godoc
// @Summary Fire a trigger for a recipient
// @Description Evaluates the active rules of the trigger, applies the selected actions and dispatches their effects
// @Tags automation
// @Accept json
// @Produce json
// @Param event body TriggerEvent true "Trigger event"
// @Success 200 {object} TriggerResult
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/automation/triggers [post]
func (ctrl *RuleController) Trigger(c *fiber.Ctx) error {
	var ev TriggerEvent
	if err := api.Bind(c, &ev); err != nil {
		return api.Error(c, err)
	}

	res, err := ctrl.Service.HandleTrigger(c.UserContext(), ev)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(res)
}
