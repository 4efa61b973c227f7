package email_template

import (
	"context"
	"fmt"
	"strings"

	"go-automation/internal/common/api"
	common_models "go-automation/internal/common/models"
	"go-automation/internal/database"
	"go-automation/internal/features/audit"
	"go-automation/pkg/validation"

	"github.com/google/uuid"
)

type EmailTemplateService interface {
	CreateTemplate(ctx context.Context, template *EmailTemplate) error
	GetTemplate(ctx context.Context, id string) (*EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]EmailTemplate, error)
	UpdateTemplate(ctx context.Context, template *EmailTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	RenderTemplate(ctx context.Context, templateID string, record map[string]interface{}) (*Rendered, error)
}

type EmailTemplateServiceImpl struct {
	Repo         EmailTemplateRepository
	AuditService audit.AuditService
}

func NewEmailTemplateService(
	repo EmailTemplateRepository,
	auditService audit.AuditService,
) EmailTemplateService {
	return &EmailTemplateServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

func (s *EmailTemplateServiceImpl) CreateTemplate(ctx context.Context, template *EmailTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}
	if template.TemplateID == "" {
		template.TemplateID = uuid.NewString()
	}

	existing, err := s.Repo.GetByID(ctx, template.TemplateID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("template %s: %w", template.TemplateID, api.ErrConflict)
	}

	if err := s.Repo.Create(ctx, template); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTemplate, database.TemplatesCollection, template.TemplateID, map[string]common_models.Change{
		"template": {
			New: template,
		},
	})
	return nil
}

func (s *EmailTemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*EmailTemplate, error) {
	template, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("template %s: %w", id, api.ErrNotFound)
	}
	return template, nil
}

func (s *EmailTemplateServiceImpl) ListTemplates(ctx context.Context) ([]EmailTemplate, error) {
	return s.Repo.List(ctx)
}

func (s *EmailTemplateServiceImpl) UpdateTemplate(ctx context.Context, template *EmailTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}
	oldTemplate, err := s.GetTemplate(ctx, template.TemplateID)
	if err != nil {
		return err
	}

	if err := s.Repo.Update(ctx, template); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTemplate, database.TemplatesCollection, template.TemplateID, map[string]common_models.Change{
		"template": {
			Old: oldTemplate,
			New: template,
		},
	})
	return nil
}

func (s *EmailTemplateServiceImpl) DeleteTemplate(ctx context.Context, id string) error {
	oldTemplate, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionTemplate, database.TemplatesCollection, id, map[string]common_models.Change{
		"template": {
			Old: oldTemplate,
			New: "DELETED",
		},
	})
	return nil
}

// RenderTemplate fills {{field}} placeholders in subject and body from
// record. Placeholders without a value are left as written.
func (s *EmailTemplateServiceImpl) RenderTemplate(ctx context.Context, templateID string, record map[string]interface{}) (*Rendered, error) {
	template, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	return &Rendered{
		TemplateID: template.TemplateID,
		Subject:    ReplacePlaceholders(template.Subject, record),
		Body:       ReplacePlaceholders(template.Body, record),
	}, nil
}

func ReplacePlaceholders(text string, record map[string]interface{}) string {
	for key, value := range record {
		placeholder := fmt.Sprintf("{{%s}}", key)
		replacement := fmt.Sprintf("%v", value)
		text = strings.ReplaceAll(text, placeholder, replacement)
	}
	return text
}

func validateTemplate(template *EmailTemplate) error {
	if strings.TrimSpace(template.Name) == "" {
		return validation.Missing("template", template.TemplateID, "name")
	}
	if strings.TrimSpace(template.Subject) == "" {
		return validation.Missing("template", template.TemplateID, "subject")
	}
	return nil
}
