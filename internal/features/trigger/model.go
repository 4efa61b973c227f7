package trigger

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-automation/pkg/validation"
)

type Kind string

const (
	// KindRules evaluates the active rules of the trigger.
	KindRules Kind = "rules"
	// KindEnroll starts the recipient in a campaign.
	KindEnroll Kind = "enroll"
)

// Message is the wire form of a trigger received over NATS.
type Message struct {
	RecipientID string                 `json:"recipientId"`
	CampaignID  string                 `json:"campaignId,omitempty"`
	Trigger     string                 `json:"trigger"`
	Facts       map[string]interface{} `json:"facts,omitempty"`
	Kind        Kind                   `json:"kind,omitempty"`
}

// Decode parses and checks a trigger message. An empty kind means rules.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode trigger: %w", err)
	}
	if msg.Kind == "" {
		msg.Kind = KindRules
	}
	if strings.TrimSpace(msg.RecipientID) == "" {
		return Message{}, validation.Missing("trigger", msg.Trigger, "recipientId")
	}

	switch msg.Kind {
	case KindRules:
		if strings.TrimSpace(msg.Trigger) == "" {
			return Message{}, validation.Missing("trigger", "", "trigger")
		}
	case KindEnroll:
		if strings.TrimSpace(msg.CampaignID) == "" {
			return Message{}, validation.Missing("trigger", msg.Trigger, "campaignId")
		}
	default:
		return Message{}, validation.Invalid("trigger", msg.Trigger, "kind", "unknown kind %q", msg.Kind)
	}
	return msg, nil
}
