package graph

import (
	"errors"

	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/validation"
)

const (
	graphSubject = "campaign"
	stepSubject  = "step"
)

// Validate checks the graph's structure: unique step ids, a start step that
// exists, step data matching each step type, edges allowed for the type, and
// no edge pointing at a missing step. Cycles are allowed.
func (g Graph) Validate() error {
	if g.ID == "" {
		return validation.Missing(graphSubject, g.ID, "id")
	}
	if g.Name == "" {
		return validation.Missing(graphSubject, g.ID, "name")
	}
	if len(g.Steps) == 0 {
		return validation.Missing(graphSubject, g.ID, "steps")
	}
	if g.StartStepID == "" {
		return validation.Missing(graphSubject, g.ID, "startStepId")
	}

	idx := make(Index, len(g.Steps))
	for _, s := range g.Steps {
		if s.ID == "" {
			return validation.Within(graphSubject, g.ID, validation.Missing(stepSubject, "", "id"))
		}
		if _, dup := idx[s.ID]; dup {
			return validation.Invalid(graphSubject, g.ID, "steps", "duplicate step id %q", s.ID)
		}
		idx[s.ID] = s
	}
	if _, ok := idx[g.StartStepID]; !ok {
		return validation.Invalid(graphSubject, g.ID, "startStepId", "no step %q", g.StartStepID)
	}

	for _, s := range g.Steps {
		if err := s.Validate(); err != nil {
			return validation.Within(graphSubject, g.ID, err)
		}
		for _, e := range []Edge{EdgeNext, EdgeYes, EdgeNo} {
			to := s.Connections.target(e)
			if to == "" {
				continue
			}
			if _, ok := idx[to]; !ok {
				return validation.Within(graphSubject, g.ID,
					validation.Invalid(stepSubject, s.ID, "connections."+string(e), "no step %q", to))
			}
		}
	}
	return nil
}

// Validate checks one step in isolation.
func (s Step) Validate() error {
	if s.Type == "" {
		return validation.Missing(stepSubject, s.ID, "type")
	}
	if newStepData(s.Type) == nil {
		return validation.Invalid(stepSubject, s.ID, "type", "unknown step type %q", s.Type)
	}
	data := s.Data
	if data == nil {
		data = derefStepData(newStepData(s.Type))
	}
	data = derefStepData(data)
	if data.StepType() != s.Type {
		return validation.Invalid(stepSubject, s.ID, "data", "%s data given for a %s step", data.StepType(), s.Type)
	}

	if s.Type == StepCondition {
		if s.Connections.Next != "" {
			return validation.Invalid(stepSubject, s.ID, "connections.next", "condition steps use yes/no edges")
		}
	} else if s.Connections.Yes != "" || s.Connections.No != "" {
		return validation.Invalid(stepSubject, s.ID, "connections", "%s steps use the next edge only", s.Type)
	}

	switch d := data.(type) {
	case ConditionStep:
		if err := condition.ValidateLogic(d.ConditionLogic); err != nil {
			return rescope(s.ID, err)
		}
		for _, c := range d.Conditions {
			if err := c.Validate(); err != nil {
				return validation.Within(stepSubject, s.ID, err)
			}
		}
	case ActionStep:
		if err := d.Action.Validate(); err != nil {
			return validation.Within(stepSubject, s.ID, err)
		}
	default:
		a, _ := Step{ID: s.ID, Type: s.Type, Data: data}.action()
		if err := a.Validate(); err != nil {
			return rescope(s.ID, err)
		}
	}
	return nil
}

// rescope reports an error raised for a step's own fields under the step.
func rescope(stepID string, err error) error {
	var ve *validation.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return &validation.ValidationError{Subject: stepSubject, ID: stepID, Field: ve.Field, Reason: ve.Reason}
}

// actionOf returns the executor action for steps that run one.
func actionOf(s Step) (action.Action, bool) {
	s.Data = derefStepData(s.Data)
	return s.action()
}
