package condition

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-automation/pkg/facts"
)

// Compiler turns a condition list into a Mongo filter so an audience can be
// preselected in the store rather than by loading every contact.
//
// The filter is a superset of what Evaluate accepts: values stored in a
// type Evaluate would coerce (numeric strings, date strings, unix seconds)
// are let through rather than compared, and negated operators only require
// the field to be present. Callers re-check candidates with EvaluateAll.
type Compiler struct {
	// Prefix is prepended to every field path, e.g. "attributes.".
	Prefix string
	// Fields maps fact names stored outside Prefix, e.g. "tags" -> "tags".
	Fields map[string]string
	Now    time.Time
}

func NewCompiler(prefix string, now time.Time) *Compiler {
	return &Compiler{Prefix: prefix, Fields: map[string]string{}, Now: now}
}

func (c *Compiler) Compile(conditions []Condition, logic Logic) (bson.M, error) {
	if err := ValidateLogic(logic); err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return bson.M{}, nil
	}

	var clauses []bson.M
	for _, cond := range conditions {
		if err := cond.Validate(); err != nil {
			return nil, err
		}
		clause, err := c.compileCondition(cond)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	op := "$and"
	if logic == LogicOr {
		op = "$or"
	}
	return bson.M{op: clauses}, nil
}

func (c *Compiler) path(field string) string {
	if p, ok := c.Fields[field]; ok {
		return p
	}
	return c.Prefix + field
}

// BSON type aliases Evaluate may coerce to another kind.
var (
	stringTypes    = bson.A{"string"}
	numericTypes   = bson.A{"double", "int", "long", "decimal"}
	nonStringTypes = bson.A{"double", "int", "long", "decimal", "bool", "date", "array"}
)

func (c *Compiler) compileCondition(cond Condition) (bson.M, error) {
	if cond.scripted() {
		return nil, fmt.Errorf("condition %q: custom expressions cannot be compiled to a store filter", cond.ID)
	}

	field := c.path(cond.Field)
	present := bson.M{field: bson.M{"$exists": true, "$ne": nil}}

	switch cond.Operator {
	case OperatorExists:
		return present, nil
	case OperatorNotExists:
		return bson.M{"$or": []bson.M{{field: bson.M{"$exists": false}}, {field: nil}}}, nil
	}

	if cond.Type == TypeTime {
		return c.compileTime(cond, field)
	}

	val := cond.Value
	switch cond.Operator {
	case OperatorEquals:
		return equalsClause(field, val, present), nil
	case OperatorNotEquals, OperatorNotContains:
		return present, nil
	case OperatorGreaterThan:
		return numericClause(field, "$gt", val, present), nil
	case OperatorLessThan:
		return numericClause(field, "$lt", val, present), nil
	case OperatorContains:
		return containsClause(field, val, present), nil
	default:
		return nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

func anyOf(clauses ...bson.M) bson.M {
	return bson.M{"$or": clauses}
}

func typed(field string, types bson.A) bson.M {
	return bson.M{field: bson.M{"$type": types}}
}

func scalar(val any) bool {
	switch val.(type) {
	case bool, int, int32, int64, float32, float64:
		return true
	}
	return false
}

func equalsClause(field string, val any, present bson.M) bson.M {
	if _, ok := val.(string); ok {
		return anyOf(bson.M{field: val}, typed(field, nonStringTypes))
	}
	if scalar(val) {
		return anyOf(bson.M{field: val}, typed(field, bson.A{"string", "date", "array"}))
	}
	return present
}

func numericClause(field, op string, val any, present bson.M) bson.M {
	n, ok := facts.Of(val).AsNumber()
	if !ok {
		return present
	}
	return anyOf(bson.M{field: bson.M{op: n}}, typed(field, stringTypes))
}

// containsClause matches list membership, and substrings for string values.
func containsClause(field string, val any, present bson.M) bson.M {
	s, ok := val.(string)
	if !ok {
		if scalar(val) {
			return anyOf(bson.M{field: val}, typed(field, bson.A{"string", "date"}))
		}
		return present
	}
	return anyOf(
		bson.M{field: s},
		bson.M{field: bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(s)}}},
		typed(field, nonStringTypes),
	)
}

func (c *Compiler) compileTime(cond Condition, field string) (bson.M, error) {
	boundary, err := cond.Timeframe.Boundary(c.Now)
	if err != nil {
		return nil, err
	}
	end := boundary.Add(cond.Timeframe.Unit.Duration())
	coercible := typed(field, append(bson.A{"string"}, numericTypes...))

	switch cond.Operator {
	case OperatorGreaterThan:
		return anyOf(bson.M{field: bson.M{"$gt": boundary}}, coercible), nil
	case OperatorLessThan:
		return anyOf(bson.M{field: bson.M{"$lt": boundary}}, coercible), nil
	case OperatorEquals:
		return anyOf(bson.M{field: bson.M{"$gte": boundary, "$lt": end}}, coercible), nil
	case OperatorNotEquals:
		return anyOf(
			bson.M{field: bson.M{"$lt": boundary}},
			bson.M{field: bson.M{"$gte": end}},
			coercible,
		), nil
	}
	return nil, fmt.Errorf("unknown operator: %s", cond.Operator)
}
