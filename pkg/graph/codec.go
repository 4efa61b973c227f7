package graph

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"

	"go-automation/pkg/validation"
)

func newStepData(t StepType) StepData {
	switch t {
	case StepEmail:
		return &EmailStep{}
	case StepWait:
		return &WaitStep{}
	case StepCondition:
		return &ConditionStep{}
	case StepAction:
		return &ActionStep{}
	}
	return nil
}

func derefStepData(d StepData) StepData {
	switch v := d.(type) {
	case *EmailStep:
		return *v
	case *WaitStep:
		return *v
	case *ConditionStep:
		return *v
	case *ActionStep:
		return *v
	}
	return d
}

type stepJSON struct {
	ID          string          `json:"id"`
	Type        StepType        `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	Connections Connections     `json:"connections"`
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var w stepJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d := newStepData(w.Type)
	if d == nil {
		return validation.Invalid(stepSubject, w.ID, "type", "unknown step type %q", w.Type)
	}
	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, d); err != nil {
			return validation.Invalid(stepSubject, w.ID, "data", "%v", err)
		}
	}
	*s = Step{ID: w.ID, Type: w.Type, Data: derefStepData(d), Connections: w.Connections}
	return nil
}

type stepBSON struct {
	ID          string      `bson:"id"`
	Type        StepType    `bson:"type"`
	Data        bson.Raw    `bson:"data,omitempty"`
	Connections Connections `bson:"connections"`
}

func (s Step) MarshalBSON() ([]byte, error) {
	data := s.Data
	if data == nil {
		if zero := newStepData(s.Type); zero != nil {
			data = derefStepData(zero)
		}
	}
	return bson.Marshal(struct {
		ID          string      `bson:"id"`
		Type        StepType    `bson:"type"`
		Data        StepData    `bson:"data"`
		Connections Connections `bson:"connections"`
	}{s.ID, s.Type, data, s.Connections})
}

func (s *Step) UnmarshalBSON(b []byte) error {
	var w stepBSON
	if err := bson.Unmarshal(b, &w); err != nil {
		return err
	}
	d := newStepData(w.Type)
	if d == nil {
		return validation.Invalid(stepSubject, w.ID, "type", "unknown step type %q", w.Type)
	}
	if len(w.Data) > 0 {
		if err := bson.Unmarshal(w.Data, d); err != nil {
			return err
		}
	}
	*s = Step{ID: w.ID, Type: w.Type, Data: derefStepData(d), Connections: w.Connections}
	return nil
}
