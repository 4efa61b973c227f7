package action

import (
	"net/url"

	"go-automation/pkg/timeframe"
	"go-automation/pkg/validation"
)

type Type string

const (
	TypeSendEmail      Type = "send_email"
	TypeWait           Type = "wait"
	TypeAddTag         Type = "add_tag"
	TypeRemoveTag      Type = "remove_tag"
	TypeUpdateField    Type = "update_field"
	TypeWebhook        Type = "webhook"
	TypeStopSequence   Type = "stop_sequence"
	TypeMoveToSequence Type = "move_to_sequence"
)

const subject = "action"

// Payload is the type-specific data of an action. Each action type has
// exactly one payload struct carrying only the fields that type needs.
type Payload interface {
	ActionType() Type
	validate(id string) error
}

// Action is one instruction in a rule's true/false list or an action step.
type Action struct {
	ID   string  `json:"id" bson:"id"`
	Type Type    `json:"type" bson:"type"`
	Data Payload `json:"data" bson:"data"`
}

type SendEmail struct {
	TemplateID string `json:"templateId" bson:"templateId"`
}

type Wait struct {
	Duration     int            `json:"duration" bson:"duration"`
	DurationUnit timeframe.Unit `json:"durationUnit" bson:"durationUnit"`
}

type AddTag struct {
	TagName string `json:"tagName" bson:"tagName"`
}

type RemoveTag struct {
	TagName string `json:"tagName" bson:"tagName"`
}

type UpdateField struct {
	FieldName  string `json:"fieldName" bson:"fieldName"`
	FieldValue any    `json:"fieldValue" bson:"fieldValue"`
}

type Webhook struct {
	WebhookURL string            `json:"webhookUrl" bson:"webhookUrl"`
	Method     string            `json:"method,omitempty" bson:"method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" bson:"headers,omitempty"`
	Payload    map[string]any    `json:"payload,omitempty" bson:"payload,omitempty"`
}

type StopSequence struct{}

type MoveToSequence struct {
	SequenceID string `json:"sequenceId" bson:"sequenceId"`
}

func (SendEmail) ActionType() Type      { return TypeSendEmail }
func (Wait) ActionType() Type           { return TypeWait }
func (AddTag) ActionType() Type         { return TypeAddTag }
func (RemoveTag) ActionType() Type      { return TypeRemoveTag }
func (UpdateField) ActionType() Type    { return TypeUpdateField }
func (Webhook) ActionType() Type        { return TypeWebhook }
func (StopSequence) ActionType() Type   { return TypeStopSequence }
func (MoveToSequence) ActionType() Type { return TypeMoveToSequence }

// newPayload returns the zero payload for t, or nil for unknown types.
func newPayload(t Type) Payload {
	switch t {
	case TypeSendEmail:
		return &SendEmail{}
	case TypeWait:
		return &Wait{}
	case TypeAddTag:
		return &AddTag{}
	case TypeRemoveTag:
		return &RemoveTag{}
	case TypeUpdateField:
		return &UpdateField{}
	case TypeWebhook:
		return &Webhook{}
	case TypeStopSequence:
		return &StopSequence{}
	case TypeMoveToSequence:
		return &MoveToSequence{}
	}
	return nil
}

// deref turns the decoding pointer back into the value form used everywhere else.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *SendEmail:
		return *v
	case *Wait:
		return *v
	case *AddTag:
		return *v
	case *RemoveTag:
		return *v
	case *UpdateField:
		return *v
	case *Webhook:
		return *v
	case *StopSequence:
		return *v
	case *MoveToSequence:
		return *v
	}
	return p
}

// New builds a validated action from a payload.
func New(id string, data Payload) (Action, error) {
	a := Action{ID: id, Data: deref(data)}
	if data != nil {
		a.Type = data.ActionType()
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Validate checks that Data carries every field required by Type.
func (a Action) Validate() error {
	if a.Type == "" {
		return validation.Missing(subject, a.ID, "type")
	}
	zero := newPayload(a.Type)
	if zero == nil {
		return validation.Invalid(subject, a.ID, "type", "unknown action type %q", a.Type)
	}
	data := a.Data
	if data == nil {
		data = deref(zero)
	}
	data = deref(data)
	if data.ActionType() != a.Type {
		return validation.Invalid(subject, a.ID, "data", "%s data given for a %s action", data.ActionType(), a.Type)
	}
	return data.validate(a.ID)
}

// payload returns Data in value form; Validate must have passed.
func (a Action) payload() Payload {
	if a.Data == nil {
		return deref(newPayload(a.Type))
	}
	return deref(a.Data)
}

func (p SendEmail) validate(id string) error {
	if p.TemplateID == "" {
		return validation.Missing(subject, id, "templateId")
	}
	return nil
}

func (p Wait) validate(id string) error {
	if p.Duration == 0 {
		return validation.Missing(subject, id, "duration")
	}
	if p.Duration < 0 {
		return validation.Invalid(subject, id, "duration", "must be positive")
	}
	if p.DurationUnit == "" {
		return validation.Missing(subject, id, "durationUnit")
	}
	if !p.DurationUnit.Valid() {
		return validation.Invalid(subject, id, "durationUnit", "unknown unit %q", p.DurationUnit)
	}
	return nil
}

func (p AddTag) validate(id string) error {
	if p.TagName == "" {
		return validation.Missing(subject, id, "tagName")
	}
	return nil
}

func (p RemoveTag) validate(id string) error {
	if p.TagName == "" {
		return validation.Missing(subject, id, "tagName")
	}
	return nil
}

func (p UpdateField) validate(id string) error {
	if p.FieldName == "" {
		return validation.Missing(subject, id, "fieldName")
	}
	if p.FieldValue == nil {
		return validation.Missing(subject, id, "fieldValue")
	}
	return nil
}

func (p Webhook) validate(id string) error {
	if p.WebhookURL == "" {
		return validation.Missing(subject, id, "webhookUrl")
	}
	u, err := url.ParseRequestURI(p.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validation.Invalid(subject, id, "webhookUrl", "must be an absolute http(s) URL")
	}
	return nil
}

func (StopSequence) validate(string) error { return nil }

func (p MoveToSequence) validate(id string) error {
	if p.SequenceID == "" {
		return validation.Missing(subject, id, "sequenceId")
	}
	return nil
}
