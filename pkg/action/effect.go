package action

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies a side-effect descriptor by the collaborator that
// handles it.
type Kind string

const (
	KindSendEmail        Kind = "send_email"
	KindWebhook          Kind = "webhook"
	KindTagMutation      Kind = "tag_mutation"
	KindFieldMutation    Kind = "field_mutation"
	KindSequenceTransfer Kind = "sequence_transfer"
)

// Effect describes I/O for a collaborator to perform. The engine produces
// effects and never executes them.
type Effect struct {
	ID          string        `json:"id" bson:"id"`
	Kind        Kind          `json:"kind" bson:"kind"`
	ActionID    string        `json:"actionId" bson:"action_id"`
	RecipientID string        `json:"recipientId" bson:"recipient_id"`
	CampaignID  string        `json:"campaignId" bson:"campaign_id"`
	CreatedAt   time.Time     `json:"createdAt" bson:"created_at"`
	Payload     EffectPayload `json:"payload" bson:"payload"`
}

type EffectPayload interface {
	EffectKind() Kind
}

type EmailEffect struct {
	TemplateID  string `json:"templateId" bson:"template_id"`
	RecipientID string `json:"recipientId" bson:"recipient_id"`
}

type WebhookEffect struct {
	URL     string            `json:"url" bson:"url"`
	Method  string            `json:"method" bson:"method"`
	Headers map[string]string `json:"headers,omitempty" bson:"headers,omitempty"`
	Payload map[string]any    `json:"payload" bson:"payload"`
}

type TagOp string

const (
	TagAdded   TagOp = "add"
	TagRemoved TagOp = "remove"
)

type TagMutationEffect struct {
	Tag string `json:"tag" bson:"tag"`
	Op  TagOp  `json:"op" bson:"op"`
}

type FieldMutationEffect struct {
	Field string `json:"field" bson:"field"`
	Value any    `json:"value" bson:"value"`
}

type SequenceTransferEffect struct {
	TargetCampaignID string `json:"targetCampaignId" bson:"target_campaign_id"`
}

func (EmailEffect) EffectKind() Kind            { return KindSendEmail }
func (WebhookEffect) EffectKind() Kind          { return KindWebhook }
func (TagMutationEffect) EffectKind() Kind      { return KindTagMutation }
func (FieldMutationEffect) EffectKind() Kind    { return KindFieldMutation }
func (SequenceTransferEffect) EffectKind() Kind { return KindSequenceTransfer }

func (e *Effect) UnmarshalJSON(b []byte) error {
	type plain Effect
	var w struct {
		plain
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var p EffectPayload
	switch w.Kind {
	case KindSendEmail:
		p = &EmailEffect{}
	case KindWebhook:
		p = &WebhookEffect{}
	case KindTagMutation:
		p = &TagMutationEffect{}
	case KindFieldMutation:
		p = &FieldMutationEffect{}
	case KindSequenceTransfer:
		p = &SequenceTransferEffect{}
	default:
		return fmt.Errorf("unknown effect kind %q", w.Kind)
	}
	if len(w.Payload) > 0 {
		if err := json.Unmarshal(w.Payload, p); err != nil {
			return err
		}
	}

	*e = Effect(w.plain)
	switch v := p.(type) {
	case *EmailEffect:
		e.Payload = *v
	case *WebhookEffect:
		e.Payload = *v
	case *TagMutationEffect:
		e.Payload = *v
	case *FieldMutationEffect:
		e.Payload = *v
	case *SequenceTransferEffect:
		e.Payload = *v
	}
	return nil
}
