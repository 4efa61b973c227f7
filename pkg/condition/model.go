package condition

import (
	"go-automation/pkg/timeframe"
)

type Type string

const (
	TypeEngagement Type = "engagement"
	TypeBehavior   Type = "behavior"
	TypeAttribute  Type = "attribute"
	TypeTime       Type = "time"
	TypeCustom     Type = "custom"
)

type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

var SupportedTypes = []Type{TypeEngagement, TypeBehavior, TypeAttribute, TypeTime, TypeCustom}

var SupportedOperators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorContains,
	OperatorNotContains,
	OperatorExists,
	OperatorNotExists,
}

// Condition tests one fact of a recipient.
//
// Timeframe is only read for time conditions, Value is ignored by
// exists/not_exists, and Expression is only read for custom conditions.
type Condition struct {
	ID         string               `json:"id" bson:"id"`
	Type       Type                 `json:"type" bson:"type"`
	Field      string               `json:"field" bson:"field"`
	Operator   Operator             `json:"operator" bson:"operator"`
	Value      any                  `json:"value,omitempty" bson:"value,omitempty"`
	Timeframe  *timeframe.Timeframe `json:"timeframe,omitempty" bson:"timeframe,omitempty"`
	Expression string               `json:"expression,omitempty" bson:"expression,omitempty"`
}

// Logic combines the results of a condition list.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

func (t Type) valid() bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

func (o Operator) valid() bool {
	for _, s := range SupportedOperators {
		if s == o {
			return true
		}
	}
	return false
}

func (o Operator) ignoresValue() bool {
	return o == OperatorExists || o == OperatorNotExists
}

func (c Condition) scripted() bool {
	return c.Type == TypeCustom && c.Expression != ""
}
