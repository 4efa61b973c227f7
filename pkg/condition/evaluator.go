// Package condition evaluates single conditions, and condition lists, against
// a recipient's fact snapshot.
//
// Evaluation is total: a missing fact or a value that cannot be coerced
// resolves to a boolean, never an error. Only malformed definitions fail.
package condition

import (
	"strings"
	"time"

	"go-automation/pkg/facts"
)

// Evaluate reports whether c holds for the snapshot at instant now.
func Evaluate(c Condition, snapshot facts.Snapshot, now time.Time) (bool, error) {
	if err := c.validateShape(); err != nil {
		return false, err
	}
	if c.scripted() {
		return evaluateExpression(c, snapshot)
	}

	actual, exists := snapshot.Get(c.Field)
	switch c.Operator {
	case OperatorExists:
		return exists, nil
	case OperatorNotExists:
		return !exists, nil
	}
	if !exists {
		return false, nil
	}

	if c.Type == TypeTime {
		return evaluateTime(c, actual, now), nil
	}

	expected := facts.Of(c.Value)
	switch c.Operator {
	case OperatorEquals:
		return actual.Equal(expected), nil
	case OperatorNotEquals:
		return !actual.Equal(expected), nil
	case OperatorGreaterThan, OperatorLessThan:
		return compareNumeric(actual, c.Operator, expected), nil
	case OperatorContains:
		found, ok := contains(actual, expected)
		return ok && found, nil
	case OperatorNotContains:
		found, ok := contains(actual, expected)
		return ok && !found, nil
	}
	return false, nil
}

func compareNumeric(actual facts.Value, op Operator, expected facts.Value) bool {
	a, ok := actual.AsNumber()
	if !ok {
		return false
	}
	b, ok := expected.AsNumber()
	if !ok {
		return false
	}
	if op == OperatorGreaterThan {
		return a > b
	}
	return a < b
}

// contains reports substring (strings) or membership (lists). The second
// result is false when the fact is neither.
func contains(actual, expected facts.Value) (bool, bool) {
	if s, ok := actual.AsString(); ok {
		return strings.Contains(s, expected.String()), true
	}
	if items, ok := actual.AsList(); ok {
		for _, item := range items {
			if item.Equal(expected) {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

// evaluateTime compares the fact's timestamp with now minus the timeframe.
// greater_than means the fact happened after the boundary (more recently).
func evaluateTime(c Condition, actual facts.Value, now time.Time) bool {
	ts, ok := actual.AsTime()
	if !ok {
		return false
	}
	boundary, err := c.Timeframe.Boundary(now)
	if err != nil {
		return false
	}

	switch c.Operator {
	case OperatorGreaterThan:
		return ts.After(boundary)
	case OperatorLessThan:
		return ts.Before(boundary)
	case OperatorEquals:
		return inBucket(ts, boundary, c.Timeframe.Unit.Duration())
	case OperatorNotEquals:
		return !inBucket(ts, boundary, c.Timeframe.Unit.Duration())
	}
	return false
}

func inBucket(ts, start time.Time, width time.Duration) bool {
	return !ts.Before(start) && ts.Before(start.Add(width))
}

// EvaluateAll combines conditions with logic. An empty list is true for both
// AND and OR.
func EvaluateAll(conditions []Condition, logic Logic, snapshot facts.Snapshot, now time.Time) (bool, error) {
	if err := ValidateLogic(logic); err != nil {
		return false, err
	}
	if len(conditions) == 0 {
		return true, nil
	}

	// Every condition is evaluated, even after the outcome is known, so a
	// malformed condition late in the list is still reported.
	result := logic == LogicAnd
	for _, c := range conditions {
		ok, err := Evaluate(c, snapshot, now)
		if err != nil {
			return false, err
		}
		if logic == LogicAnd {
			result = result && ok
		} else {
			result = result || ok
		}
	}
	return result, nil
}
