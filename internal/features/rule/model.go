package rule

import (
	"time"

	"go-automation/internal/features/dispatch"
	"go-automation/pkg/action"
	engine "go-automation/pkg/rule"
	"go-automation/pkg/state"
)

// CampaignPrefix namespaces the execution states of rule-driven recipients.
const CampaignPrefix = "rules:"

// AutomationRule is a stored rule definition.
type AutomationRule struct {
	engine.Rule `bson:",inline"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// TriggerEvent asks the engine to evaluate the rules of one trigger for a
// recipient. Facts override the stored facts of the recipient.
type TriggerEvent struct {
	RecipientID string                 `json:"recipientId" validate:"required"`
	CampaignID  string                 `json:"campaignId,omitempty"`
	Trigger     string                 `json:"trigger" validate:"required"`
	Facts       map[string]interface{} `json:"facts"`
}

// StateCampaign returns the campaign id the event's state is kept under.
func (e TriggerEvent) StateCampaign() string {
	if e.CampaignID != "" {
		return e.CampaignID
	}
	return CampaignPrefix + e.Trigger
}

type TriggerResult struct {
	Trigger     string              `json:"trigger"`
	RecipientID string              `json:"recipientId"`
	CampaignID  string              `json:"campaignId"`
	Results     []engine.Result     `json:"results"`
	State       state.State         `json:"state"`
	Effects     []action.Effect     `json:"effects"`
	Deliveries  []dispatch.Delivery `json:"deliveries"`
	// Deferred counts the actions parked behind a wait.
	Deferred int `json:"deferred"`
}

type ActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type DryRunRequest struct {
	Facts map[string]interface{} `json:"facts"`
	Now   *time.Time             `json:"now,omitempty"`
}
