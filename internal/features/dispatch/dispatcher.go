package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-automation/internal/features/email_template"
	"go-automation/internal/features/stream"
	"go-automation/internal/metrics"
	"go-automation/pkg/action"

	"go.uber.org/zap"
)

// MaxTransfers bounds chains of sequence transfers started from one dispatch.
const MaxTransfers = 5

var ErrTransferChain = errors.New("sequence transfer chain too deep")

// Enroller starts a recipient in another campaign for sequence_transfer
// effects.
type Enroller interface {
	Transfer(ctx context.Context, campaignID, recipientID string, facts map[string]interface{}) error
}

type Renderer interface {
	RenderTemplate(ctx context.Context, templateID string, record map[string]interface{}) (*email_template.Rendered, error)
}

// Contacts applies tag and field mutations to the recipient profile.
type Contacts interface {
	AddTag(ctx context.Context, recipientID, tag string) error
	RemoveTag(ctx context.Context, recipientID, tag string) error
	SetField(ctx context.Context, recipientID, field string, value interface{}) error
}

type Dispatcher interface {
	// Dispatch performs effects in order. record supplies template
	// placeholders and the recipient's email address.
	Dispatch(ctx context.Context, effects []action.Effect, record map[string]interface{}) []Delivery
	SetEnroller(e Enroller)
}

type DispatcherImpl struct {
	Templates Renderer
	Mailer    Mailer
	Webhooks  WebhookSender
	Contacts  Contacts
	Feed      stream.Publisher
	Logger    *zap.Logger
	enroller  Enroller
	now       func() time.Time
}

func NewDispatcher(templates email_template.EmailTemplateService, mailer Mailer, webhooks WebhookSender, contacts Contacts, feed stream.Publisher, logger *zap.Logger) Dispatcher {
	return &DispatcherImpl{
		Templates: templates,
		Mailer:    mailer,
		Webhooks:  webhooks,
		Contacts:  contacts,
		Feed:      feed,
		Logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (d *DispatcherImpl) SetEnroller(e Enroller) {
	d.enroller = e
}

func (d *DispatcherImpl) Dispatch(ctx context.Context, effects []action.Effect, record map[string]interface{}) []Delivery {
	deliveries := make([]Delivery, 0, len(effects))
	for _, effect := range effects {
		start := time.Now()
		err := d.perform(ctx, effect, record)
		metrics.EffectDispatchDuration.WithLabelValues(string(effect.Kind)).Observe(time.Since(start).Seconds())

		delivery := Delivery{
			EffectID:    effect.ID,
			Kind:        effect.Kind,
			RecipientID: effect.RecipientID,
			CampaignID:  effect.CampaignID,
			Status:      DeliveryDelivered,
			At:          d.now(),
		}
		if err != nil {
			delivery.Status = DeliveryFailed
			delivery.Error = err.Error()
			d.Logger.Warn("Effect delivery failed",
				zap.String("recipient_id", effect.RecipientID),
				zap.String("campaign_id", effect.CampaignID),
				zap.String("effect_kind", string(effect.Kind)),
				zap.String("effect_id", effect.ID),
				zap.Error(err),
			)
		}
		metrics.EffectsDispatchedTotal.WithLabelValues(string(effect.Kind), string(delivery.Status)).Inc()

		d.Feed.Publish(ctx, stream.Event{
			Type:        stream.EventDelivery,
			RecipientID: delivery.RecipientID,
			CampaignID:  delivery.CampaignID,
			Data:        delivery,
			At:          delivery.At,
		})
		deliveries = append(deliveries, delivery)
	}
	return deliveries
}

func (d *DispatcherImpl) perform(ctx context.Context, effect action.Effect, record map[string]interface{}) error {
	switch p := effect.Payload.(type) {
	case action.EmailEffect:
		return d.sendEmail(ctx, p, record)
	case action.WebhookEffect:
		return d.Webhooks.Send(ctx, effect, p)
	case action.TagMutationEffect:
		if p.Op == action.TagRemoved {
			return d.Contacts.RemoveTag(ctx, effect.RecipientID, p.Tag)
		}
		return d.Contacts.AddTag(ctx, effect.RecipientID, p.Tag)
	case action.FieldMutationEffect:
		return d.Contacts.SetField(ctx, effect.RecipientID, p.Field, p.Value)
	case action.SequenceTransferEffect:
		return d.transfer(ctx, effect.RecipientID, p, record)
	default:
		return fmt.Errorf("no handler for effect kind %q", effect.Kind)
	}
}

func (d *DispatcherImpl) sendEmail(ctx context.Context, p action.EmailEffect, record map[string]interface{}) error {
	to, _ := record["email"].(string)
	if to == "" {
		return fmt.Errorf("recipient %s has no email address", p.RecipientID)
	}

	rendered, err := d.Templates.RenderTemplate(ctx, p.TemplateID, record)
	if err != nil {
		return fmt.Errorf("render template %s: %w", p.TemplateID, err)
	}
	return d.Mailer.SendEmail(ctx, []string{to}, rendered.Subject, rendered.Body)
}

type transferDepthKey struct{}

func (d *DispatcherImpl) transfer(ctx context.Context, recipientID string, p action.SequenceTransferEffect, record map[string]interface{}) error {
	if d.enroller == nil {
		return errors.New("no enroller registered for sequence transfers")
	}
	depth, _ := ctx.Value(transferDepthKey{}).(int)
	if depth >= MaxTransfers {
		return fmt.Errorf("transfer to %s: %w", p.TargetCampaignID, ErrTransferChain)
	}
	ctx = context.WithValue(ctx, transferDepthKey{}, depth+1)
	return d.enroller.Transfer(ctx, p.TargetCampaignID, recipientID, record)
}
