package email_template

import (
	"time"
)

// EmailTemplate is referenced by send_email actions through TemplateID.
type EmailTemplate struct {
	TemplateID  string    `json:"id" bson:"template_id"`
	Name        string    `json:"name" bson:"name" validate:"required"`
	Subject     string    `json:"subject" bson:"subject" validate:"required"`
	Body        string    `json:"body" bson:"body"`
	Description string    `json:"description" bson:"description"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Rendered is a template with its placeholders filled.
type Rendered struct {
	TemplateID string `json:"templateId"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

type PreviewRequest struct {
	Data map[string]interface{} `json:"data"`
}
