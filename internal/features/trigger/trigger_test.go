package trigger

import (
	"context"
	"encoding/json"
	"testing"

	"go-automation/internal/config"
	"go-automation/internal/features/campaign"
	"go-automation/internal/features/rule"
	"go-automation/internal/features/stream"
	"go-automation/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Message
		field   string
		invalid bool
	}{
		{
			name: "rules by default",
			body: `{"recipientId":"u1","trigger":"email_event","facts":{"email_opened":true}}`,
			want: Message{RecipientID: "u1", Trigger: "email_event", Kind: KindRules, Facts: map[string]interface{}{"email_opened": true}},
		},
		{
			name: "enroll",
			body: `{"recipientId":"u1","campaignId":"onboarding","kind":"enroll"}`,
			want: Message{RecipientID: "u1", CampaignID: "onboarding", Kind: KindEnroll},
		},
		{name: "missing recipient", body: `{"trigger":"signup"}`, field: "recipientId"},
		{name: "rules without trigger", body: `{"recipientId":"u1"}`, field: "trigger"},
		{name: "enroll without campaign", body: `{"recipientId":"u1","kind":"enroll"}`, field: "campaignId"},
		{name: "unknown kind", body: `{"recipientId":"u1","kind":"other"}`, field: "kind"},
		{name: "not json", body: `{`, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.body))
			switch {
			case tt.invalid:
				require.Error(t, err)
				assert.False(t, validation.IsValidation(err))
			case tt.field != "":
				var ve *validation.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.field, ve.Field)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, msg)
			}
		})
	}
}

type fakeRules struct{ events []rule.TriggerEvent }

func (f *fakeRules) HandleTrigger(_ context.Context, ev rule.TriggerEvent) (*rule.TriggerResult, error) {
	f.events = append(f.events, ev)
	return &rule.TriggerResult{}, nil
}

type fakeCampaigns struct{ enrolled []string }

func (f *fakeCampaigns) Enroll(_ context.Context, campaignID, recipientID string, _ map[string]interface{}) (*campaign.RunOutcome, error) {
	f.enrolled = append(f.enrolled, campaignID+"/"+recipientID)
	return &campaign.RunOutcome{}, nil
}

func TestSubscriberHandleRoutes(t *testing.T) {
	rules := &fakeRules{}
	campaigns := &fakeCampaigns{}
	sub := &Subscriber{
		router: &Router{Rules: rules, Campaigns: campaigns, Logger: zap.NewNop()},
		logger: zap.NewNop(),
	}

	sub.Handle("automation.triggers", []byte(`{"recipientId":"u1","trigger":"signup"}`))
	sub.Handle("automation.triggers", []byte(`{"recipientId":"u2","campaignId":"onboarding","kind":"enroll"}`))
	sub.Handle("automation.triggers", []byte(`garbage`))

	require.Len(t, rules.events, 1)
	assert.Equal(t, "u1", rules.events[0].RecipientID)
	assert.Equal(t, "signup", rules.events[0].Trigger)
	assert.Equal(t, []string{"onboarding/u2"}, campaigns.enrolled)
}

func TestSubscriberStartWithoutConnection(t *testing.T) {
	sub := &Subscriber{conn: &Connection{}, logger: zap.NewNop()}
	assert.NoError(t, sub.Start())
	assert.NoError(t, sub.Stop())
}

func TestPublisherForwardsDeliveries(t *testing.T) {
	var subjects []string
	var payloads [][]byte
	p := &Publisher{
		subject: "automation.effects",
		logger:  zap.NewNop(),
		publish: func(subject string, data []byte) error {
			subjects = append(subjects, subject)
			payloads = append(payloads, data)
			return nil
		},
	}

	p.Publish(context.Background(), stream.Event{Type: stream.EventCheckpoint, RecipientID: "u1"})
	p.Publish(context.Background(), stream.Event{Type: stream.EventDelivery, RecipientID: "u1", CampaignID: "c1"})

	require.Len(t, payloads, 1)
	assert.Equal(t, "automation.effects", subjects[0])
	var ev stream.Event
	require.NoError(t, json.Unmarshal(payloads[0], &ev))
	assert.Equal(t, stream.EventDelivery, ev.Type)
	assert.Equal(t, "c1", ev.CampaignID)
}

func TestPublisherDisabled(t *testing.T) {
	p := NewPublisher(&Connection{}, &config.Config{NATSEffectSubject: "automation.effects"}, zap.NewNop())
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), stream.Event{Type: stream.EventDelivery})
	})
}
