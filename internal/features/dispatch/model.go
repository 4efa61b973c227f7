package dispatch

import (
	"time"

	"go-automation/pkg/action"
)

type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Delivery reports the outcome of one effect. Failed effects are not
// retried.
type Delivery struct {
	EffectID    string         `json:"effectId"`
	Kind        action.Kind    `json:"kind"`
	RecipientID string         `json:"recipientId"`
	CampaignID  string         `json:"campaignId"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	At          time.Time      `json:"at"`
}

// Failed returns the deliveries that did not succeed.
func Failed(deliveries []Delivery) []Delivery {
	var out []Delivery
	for _, d := range deliveries {
		if d.Status == DeliveryFailed {
			out = append(out, d)
		}
	}
	return out
}
