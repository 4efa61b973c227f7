package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"go-automation/pkg/timeframe"
	"go-automation/pkg/validation"
)

func TestUnmarshalJSONPicksPayload(t *testing.T) {
	var actions []Action
	raw := `[
		{"id":"1","type":"wait","data":{"duration":2,"durationUnit":"days"}},
		{"id":"2","type":"add_tag","data":{"tagName":"engaged"}},
		{"id":"3","type":"stop_sequence"},
		{"id":"4","type":"send_email","data":{}}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &actions))
	require.Len(t, actions, 4)

	assert.Equal(t, Wait{Duration: 2, DurationUnit: timeframe.Days}, actions[0].Data)
	assert.Equal(t, AddTag{TagName: "engaged"}, actions[1].Data)
	assert.Equal(t, StopSequence{}, actions[2].Data)

	// Decodes, but fails validation at execution time.
	assert.Equal(t, SendEmail{}, actions[3].Data)
	assert.True(t, validation.IsValidation(actions[3].Validate()))
}

func TestUnmarshalJSONUnknownType(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"id":"x","type":"send_fax","data":{}}`), &a)
	assert.True(t, validation.IsValidation(err))
}

func TestMarshalJSONShape(t *testing.T) {
	out, err := json.Marshal(Action{ID: "1", Type: TypeMoveToSequence, Data: MoveToSequence{SequenceID: "nurture"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","type":"move_to_sequence","data":{"sequenceId":"nurture"}}`, string(out))
}

func TestBSONKeepsUnion(t *testing.T) {
	in := struct {
		Actions []Action `bson:"actions"`
	}{Actions: []Action{
		{ID: "1", Type: TypeUpdateField, Data: UpdateField{FieldName: "stage", FieldValue: "customer"}},
		{ID: "2", Type: TypeWebhook, Data: Webhook{WebhookURL: "https://example.com/h", Headers: map[string]string{"X-Key": "k"}}},
	}}

	raw, err := bson.Marshal(in)
	require.NoError(t, err)

	var out struct {
		Actions []Action `bson:"actions"`
	}
	require.NoError(t, bson.Unmarshal(raw, &out))
	require.Len(t, out.Actions, 2)
	assert.Equal(t, UpdateField{FieldName: "stage", FieldValue: "customer"}, out.Actions[0].Data)
	assert.Equal(t, Webhook{WebhookURL: "https://example.com/h", Headers: map[string]string{"X-Key": "k"}}, out.Actions[1].Data)
}

func TestEffectJSON(t *testing.T) {
	in := Effect{ID: "e1", Kind: KindTagMutation, ActionID: "a", RecipientID: "r", CampaignID: "c", Payload: TagMutationEffect{Tag: "vip", Op: TagAdded}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Effect
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Payload, out.Payload)
	assert.Equal(t, "r", out.RecipientID)
}
