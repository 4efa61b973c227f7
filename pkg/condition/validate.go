package condition

import (
	"go-automation/pkg/validation"
)

const subject = "condition"

// Validate checks the condition's shape, and compiles custom expressions.
func (c Condition) Validate() error {
	if err := c.validateShape(); err != nil {
		return err
	}
	if c.scripted() {
		if _, err := compileExpression(c.Expression); err != nil {
			return compileError(c, err)
		}
	}
	return nil
}

func (c Condition) validateShape() error {
	if c.Type == "" {
		return validation.Missing(subject, c.ID, "type")
	}
	if !c.Type.valid() {
		return validation.Invalid(subject, c.ID, "type", "unknown type %q", c.Type)
	}

	if c.scripted() {
		return nil
	}

	if c.Field == "" {
		return validation.Missing(subject, c.ID, "field")
	}
	if c.Operator == "" {
		return validation.Missing(subject, c.ID, "operator")
	}
	if !c.Operator.valid() {
		return validation.Invalid(subject, c.ID, "operator", "unknown operator %q", c.Operator)
	}

	if c.Type == TypeTime {
		return c.validateTime()
	}

	if !c.Operator.ignoresValue() && c.Value == nil {
		return validation.Missing(subject, c.ID, "value")
	}
	return nil
}

func (c Condition) validateTime() error {
	switch c.Operator {
	case OperatorContains, OperatorNotContains:
		return validation.Invalid(subject, c.ID, "operator", "%q is not supported for time conditions", c.Operator)
	case OperatorExists, OperatorNotExists:
		return nil
	}
	if c.Timeframe == nil {
		return validation.Missing(subject, c.ID, "timeframe")
	}
	if !c.Timeframe.Unit.Valid() {
		return validation.Invalid(subject, c.ID, "timeframe.unit", "unknown unit %q", c.Timeframe.Unit)
	}
	if c.Timeframe.Amount < 0 {
		return validation.Invalid(subject, c.ID, "timeframe.amount", "must not be negative")
	}
	return nil
}

// ValidateLogic rejects anything but AND and OR.
func ValidateLogic(l Logic) error {
	switch l {
	case LogicAnd, LogicOr:
		return nil
	case "":
		return validation.Missing("rule", "", "conditionLogic")
	}
	return validation.Invalid("rule", "", "conditionLogic", "unknown logic %q", l)
}

func compileError(c Condition, err error) error {
	return validation.Invalid(subject, c.ID, "expression", "does not compile: %v", err)
}
