// Package graph models multi-step drip campaigns as a directed graph of
// steps, and runs one recipient through it.
package graph

import (
	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/timeframe"
)

type StepType string

const (
	StepEmail     StepType = "email"
	StepWait      StepType = "wait"
	StepCondition StepType = "condition"
	StepAction    StepType = "action"
)

// Edge names an outgoing connection. Condition steps use Yes and No, every
// other step uses Next.
type Edge string

const (
	EdgeNext Edge = "next"
	EdgeYes  Edge = "yes"
	EdgeNo   Edge = "no"
)

type Connections struct {
	Next string `json:"next,omitempty" bson:"next,omitempty"`
	Yes  string `json:"yes,omitempty" bson:"yes,omitempty"`
	No   string `json:"no,omitempty" bson:"no,omitempty"`
}

func (c Connections) target(e Edge) string {
	switch e {
	case EdgeNext:
		return c.Next
	case EdgeYes:
		return c.Yes
	case EdgeNo:
		return c.No
	}
	return ""
}

// StepData is the type-specific payload of a step.
type StepData interface {
	StepType() StepType
}

type EmailStep struct {
	TemplateID string `json:"templateId" bson:"templateId"`
}

type WaitStep struct {
	Duration     int            `json:"duration" bson:"duration"`
	DurationUnit timeframe.Unit `json:"durationUnit" bson:"durationUnit"`
}

type ConditionStep struct {
	Conditions     []condition.Condition `json:"conditions" bson:"conditions"`
	ConditionLogic condition.Logic       `json:"conditionLogic" bson:"conditionLogic"`
}

type ActionStep struct {
	Action action.Action `json:"action" bson:"action"`
}

func (EmailStep) StepType() StepType     { return StepEmail }
func (WaitStep) StepType() StepType      { return StepWait }
func (ConditionStep) StepType() StepType { return StepCondition }
func (ActionStep) StepType() StepType    { return StepAction }

type Step struct {
	ID          string      `json:"id" bson:"id"`
	Type        StepType    `json:"type" bson:"type"`
	Data        StepData    `json:"data" bson:"data"`
	Connections Connections `json:"connections" bson:"connections"`
}

// Graph is a campaign definition. Steps are kept in authoring order;
// Index builds the adjacency lookup the runner walks.
type Graph struct {
	ID          string `json:"id" bson:"campaign_id"`
	Name        string `json:"name" bson:"name"`
	StartStepID string `json:"startStepId" bson:"start_step_id"`
	IsActive    bool   `json:"isActive" bson:"is_active"`
	Steps       []Step `json:"steps" bson:"steps"`
}

// Index maps step id to step.
type Index map[string]Step

func (g Graph) Index() Index {
	idx := make(Index, len(g.Steps))
	for _, s := range g.Steps {
		idx[s.ID] = s
	}
	return idx
}

// action converts email and wait steps to the executor's action form.
func (s Step) action() (action.Action, bool) {
	switch d := s.Data.(type) {
	case EmailStep:
		return action.Action{ID: s.ID, Type: action.TypeSendEmail, Data: action.SendEmail{TemplateID: d.TemplateID}}, true
	case WaitStep:
		return action.Action{ID: s.ID, Type: action.TypeWait, Data: action.Wait{Duration: d.Duration, DurationUnit: d.DurationUnit}}, true
	case ActionStep:
		return d.Action, true
	}
	return action.Action{}, false
}
