package action

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"

	"go-automation/pkg/validation"
)

type jsonWire struct {
	ID   string          `json:"id"`
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON picks the payload struct from "type". Missing required data
// fields decode fine and are reported by Validate; an unknown type cannot be
// decoded at all.
func (a *Action) UnmarshalJSON(b []byte) error {
	var w jsonWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p := newPayload(w.Type)
	if p == nil {
		return validation.Invalid(subject, w.ID, "type", "unknown action type %q", w.Type)
	}
	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, p); err != nil {
			return validation.Invalid(subject, w.ID, "data", "%v", err)
		}
	}
	*a = Action{ID: w.ID, Type: w.Type, Data: deref(p)}
	return nil
}

type bsonWire struct {
	ID   string   `bson:"id"`
	Type Type     `bson:"type"`
	Data bson.Raw `bson:"data,omitempty"`
}

func (a Action) MarshalBSON() ([]byte, error) {
	return bson.Marshal(struct {
		ID   string  `bson:"id"`
		Type Type    `bson:"type"`
		Data Payload `bson:"data"`
	}{a.ID, a.Type, a.payload()})
}

func (a *Action) UnmarshalBSON(b []byte) error {
	var w bsonWire
	if err := bson.Unmarshal(b, &w); err != nil {
		return err
	}
	p := newPayload(w.Type)
	if p == nil {
		return validation.Invalid(subject, w.ID, "type", "unknown action type %q", w.Type)
	}
	if len(w.Data) > 0 {
		if err := bson.Unmarshal(w.Data, p); err != nil {
			return err
		}
	}
	*a = Action{ID: w.ID, Type: w.Type, Data: deref(p)}
	return nil
}
