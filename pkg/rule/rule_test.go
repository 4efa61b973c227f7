package rule

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/facts"
	"go-automation/pkg/validation"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func engagementRule() Rule {
	return Rule{
		ID:       "engagement",
		Name:     "Engagement split",
		IsActive: true,
		Conditions: []condition.Condition{
			{ID: "c1", Type: condition.TypeEngagement, Field: "email_opened", Operator: condition.OperatorEquals, Value: true},
		},
		ConditionLogic: condition.LogicAnd,
		TrueActions:    []action.Action{{ID: "t", Type: action.TypeAddTag, Data: action.AddTag{TagName: "engaged"}}},
		FalseActions:   []action.Action{{ID: "f", Type: action.TypeAddTag, Data: action.AddTag{TagName: "cold"}}},
	}
}

func TestEngagedOrCold(t *testing.T) {
	r := engagementRule()

	res, err := Evaluate(r, facts.New(map[string]any{"email_opened": true}), now)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, r.TrueActions, res.Actions)

	res, err = Evaluate(r, facts.Empty(), now)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, r.FalseActions, res.Actions)
}

func TestEmptyConditionsMatch(t *testing.T) {
	for _, logic := range []condition.Logic{condition.LogicAnd, condition.LogicOr} {
		r := engagementRule()
		r.Conditions = nil
		r.ConditionLogic = logic

		res, err := Evaluate(r, facts.New(map[string]any{"anything": 1}), now)
		require.NoError(t, err)
		assert.True(t, res.Matched, string(logic))
	}
}

func TestLogicTruthTable(t *testing.T) {
	cond := func(id, field string) condition.Condition {
		return condition.Condition{ID: id, Type: condition.TypeAttribute, Field: field, Operator: condition.OperatorEquals, Value: "yes"}
	}
	value := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	tests := []struct {
		a, b    bool
		wantAnd bool
		wantOr  bool
	}{
		{true, true, true, true},
		{true, false, false, true},
		{false, true, false, true},
		{false, false, false, false},
	}

	for _, tt := range tests {
		snapshot := facts.New(map[string]any{"a": value(tt.a), "b": value(tt.b)})
		r := engagementRule()
		r.Conditions = []condition.Condition{cond("ca", "a"), cond("cb", "b")}

		r.ConditionLogic = condition.LogicAnd
		res, err := Evaluate(r, snapshot, now)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAnd, res.Matched, "AND %v %v", tt.a, tt.b)

		r.ConditionLogic = condition.LogicOr
		res, err = Evaluate(r, snapshot, now)
		require.NoError(t, err)
		assert.Equal(t, tt.wantOr, res.Matched, "OR %v %v", tt.a, tt.b)
	}
}

func TestInactiveRuleIsSkipped(t *testing.T) {
	r := engagementRule()
	r.IsActive = false

	res, err := Evaluate(r, facts.New(map[string]any{"email_opened": true}), now)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Matched)
	assert.Empty(t, res.Actions)
}

func TestMalformedConditionIsReported(t *testing.T) {
	r := engagementRule()
	r.Conditions[0].Operator = "roughly"

	_, err := Evaluate(r, facts.Empty(), now)
	var ve *validation.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "rule", ve.Subject)
	assert.Equal(t, "operator", ve.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *Rule)
		wantField string
	}{
		{name: "valid", mutate: func(r *Rule) {}},
		{name: "missing id", mutate: func(r *Rule) { r.ID = "" }, wantField: "id"},
		{name: "missing name", mutate: func(r *Rule) { r.Name = "" }, wantField: "name"},
		{name: "missing logic", mutate: func(r *Rule) { r.ConditionLogic = "" }, wantField: "conditionLogic"},
		{name: "bad logic", mutate: func(r *Rule) { r.ConditionLogic = "XOR" }, wantField: "conditionLogic"},
		{name: "bad false action", mutate: func(r *Rule) {
			r.FalseActions = append(r.FalseActions, action.Action{ID: "w", Type: action.TypeWebhook, Data: action.Webhook{}})
		}, wantField: "webhookUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := engagementRule()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *validation.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestSortByPriorityIsStable(t *testing.T) {
	rules := []Rule{{ID: "c", Priority: 2}, {ID: "a", Priority: 1}, {ID: "d", Priority: 2}, {ID: "b", Priority: 1}}

	sorted := SortByPriority(rules)
	ids := make([]string, len(sorted))
	for i, r := range sorted {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, "c", rules[0].ID)
}

func TestEvaluateSetPolicies(t *testing.T) {
	hot := engagementRule()
	hot.ID, hot.Priority = "hot", 1

	always := engagementRule()
	always.ID, always.Priority, always.Conditions = "always", 2, nil

	off := engagementRule()
	off.ID, off.Priority, off.IsActive = "off", 0, false

	rules := []Rule{always, hot, off}
	snapshot := facts.New(map[string]any{"email_opened": true})

	all, err := EvaluateSet(rules, PolicyAll, snapshot, now)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "off", all[0].RuleID)
	assert.True(t, all[0].Skipped)
	assert.Len(t, Actions(all), 2)

	first, err := EvaluateSet(rules, PolicyFirst, snapshot, now)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "hot", first[1].RuleID)
	assert.Len(t, Actions(first), 1)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAll, p)

	p, err = ParsePolicy("first")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirst, p)

	_, err = ParsePolicy("random")
	assert.Error(t, err)
}

func TestRuleJSON(t *testing.T) {
	raw := `{
		"id": "r1", "name": "Welcome", "priority": 1, "isActive": true,
		"conditions": [], "conditionLogic": "OR",
		"trueActions": [{"id": "a1", "type": "send_email", "data": {"templateId": "welcome"}}],
		"falseActions": []
	}`
	var r Rule
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.NoError(t, r.Validate())
	assert.Equal(t, action.SendEmail{TemplateID: "welcome"}, r.TrueActions[0].Data)
}
