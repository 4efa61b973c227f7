package email_template

import (
	"go-automation/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type EmailTemplateController struct {
	Service EmailTemplateService
}

func NewEmailTemplateController(service EmailTemplateService) *EmailTemplateController {
	return &EmailTemplateController{Service: service}
}

// Create godoc
// @Summary Create email template
// @Description Create a new email template
// @Tags email_templates
// @Accept json
// @Produce json
// @Param template body EmailTemplate true "Email Template"
// @Success 201 {object} EmailTemplate
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/email-templates [post]
func (c *EmailTemplateController) Create(ctx *fiber.Ctx) error {
	var template EmailTemplate
	if err := ctx.BodyParser(&template); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := c.Service.CreateTemplate(ctx.UserContext(), &template); err != nil {
		return api.Error(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(template)
}

// Get godoc
// @Summary Get email template
// @Tags email_templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} EmailTemplate
// @Failure 404 {object} map[string]interface{}
// @Router /api/email-templates/{id} [get]
func (c *EmailTemplateController) Get(ctx *fiber.Ctx) error {
	template, err := c.Service.GetTemplate(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return api.Error(ctx, err)
	}

	return ctx.JSON(template)
}

// List godoc
// @Summary List email templates
// @Tags email_templates
// @Produce json
// @Success 200 {array} EmailTemplate
// @Router /api/email-templates [get]
func (c *EmailTemplateController) List(ctx *fiber.Ctx) error {
	templates, err := c.Service.ListTemplates(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(templates)
}

// Update godoc
// @Summary Update email template
// @Tags email_templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param template body EmailTemplate true "Email Template"
// @Success 200 {object} EmailTemplate
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/email-templates/{id} [put]
func (c *EmailTemplateController) Update(ctx *fiber.Ctx) error {
	var template EmailTemplate
	if err := ctx.BodyParser(&template); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	template.TemplateID = ctx.Params("id")

	if err := c.Service.UpdateTemplate(ctx.UserContext(), &template); err != nil {
		return api.Error(ctx, err)
	}

	return ctx.JSON(template)
}

// Delete godoc
// @Summary Delete email template
// @Tags email_templates
// @Param id path string true "Template ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/email-templates/{id} [delete]
func (c *EmailTemplateController) Delete(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteTemplate(ctx.UserContext(), ctx.Params("id")); err != nil {
		return api.Error(ctx, err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// Preview godoc
// @Summary Render email template
// @Description Fill the template placeholders with the given data without sending
// @Tags email_templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param data body PreviewRequest true "Placeholder values"
// @Success 200 {object} Rendered
// @Failure 404 {object} map[string]interface{}
// @Router /api/email-templates/{id}/preview [post]
func (c *EmailTemplateController) Preview(ctx *fiber.Ctx) error {
	var req PreviewRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rendered, err := c.Service.RenderTemplate(ctx.UserContext(), ctx.Params("id"), req.Data)
	if err != nil {
		return api.Error(ctx, err)
	}

	return ctx.JSON(rendered)
}
