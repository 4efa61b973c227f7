package trigger

import (
	"context"

	"go-automation/internal/features/campaign"
	"go-automation/internal/features/rule"

	"go.uber.org/zap"
)

type RuleHandler interface {
	HandleTrigger(ctx context.Context, ev rule.TriggerEvent) (*rule.TriggerResult, error)
}

type CampaignEnroller interface {
	Enroll(ctx context.Context, campaignID, recipientID string, data map[string]interface{}) (*campaign.RunOutcome, error)
}

// Router hands decoded messages to the rule or campaign service.
type Router struct {
	Rules     RuleHandler
	Campaigns CampaignEnroller
	Logger    *zap.Logger
}

func NewRouter(rules rule.RuleService, campaigns campaign.CampaignService, logger *zap.Logger) *Router {
	return &Router{Rules: rules, Campaigns: campaigns, Logger: logger}
}

func (r *Router) Route(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case KindEnroll:
		_, err := r.Campaigns.Enroll(ctx, msg.CampaignID, msg.RecipientID, msg.Facts)
		return err
	default:
		_, err := r.Rules.HandleTrigger(ctx, rule.TriggerEvent{
			RecipientID: msg.RecipientID,
			CampaignID:  msg.CampaignID,
			Trigger:     msg.Trigger,
			Facts:       msg.Facts,
		})
		return err
	}
}
