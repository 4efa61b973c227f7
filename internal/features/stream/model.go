package stream

import (
	"context"
	"time"
)

type EventType string

const (
	EventCheckpoint EventType = "checkpoint"
	EventDelivery   EventType = "delivery"
)

// Event is one entry of the live execution feed.
type Event struct {
	Type        EventType   `json:"type"`
	RecipientID string      `json:"recipientId"`
	CampaignID  string      `json:"campaignId"`
	Data        interface{} `json:"data"`
	At          time.Time   `json:"at"`
}

// Publisher receives feed events. Implementations must not block the caller
// on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Fanout publishes to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) {
	for _, p := range f {
		p.Publish(ctx, ev)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
