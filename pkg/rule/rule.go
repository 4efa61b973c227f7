// Package rule evaluates automation rules: a condition list combined with
// AND/OR that selects one of two action lists.
//
// Rules are evaluated independently. Ordering several rules and deciding
// whether one or all of them run is left to the caller; SortByPriority and
// the Policy type are provided for that.
package rule

import (
	"fmt"
	"sort"
	"time"

	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/facts"
	"go-automation/pkg/validation"
)

const subject = "rule"

type Rule struct {
	ID             string                `json:"id" bson:"rule_id"`
	Name           string                `json:"name" bson:"name"`
	Priority       int                   `json:"priority" bson:"priority"`
	IsActive       bool                  `json:"isActive" bson:"is_active"`
	Trigger        string                `json:"trigger,omitempty" bson:"trigger,omitempty"`
	Conditions     []condition.Condition `json:"conditions" bson:"conditions"`
	ConditionLogic condition.Logic       `json:"conditionLogic" bson:"condition_logic"`
	TrueActions    []action.Action       `json:"trueActions" bson:"true_actions"`
	FalseActions   []action.Action       `json:"falseActions" bson:"false_actions"`
}

// Result is the outcome of evaluating one rule. Skipped is set for inactive
// rules, which never match and select no actions.
type Result struct {
	RuleID  string          `json:"ruleId"`
	Matched bool            `json:"matched"`
	Skipped bool            `json:"skipped,omitempty"`
	Actions []action.Action `json:"actions"`
}

// Validate checks the rule and every condition and action it holds.
func (r Rule) Validate() error {
	if r.ID == "" {
		return validation.Missing(subject, r.ID, "id")
	}
	if r.Name == "" {
		return validation.Missing(subject, r.ID, "name")
	}
	if err := condition.ValidateLogic(r.ConditionLogic); err != nil {
		return validation.Within(subject, r.ID, err)
	}
	for _, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return validation.Within(subject, r.ID, err)
		}
	}
	for _, list := range [][]action.Action{r.TrueActions, r.FalseActions} {
		for _, a := range list {
			if err := a.Validate(); err != nil {
				return validation.Within(subject, r.ID, err)
			}
		}
	}
	return nil
}

// Evaluate combines the rule's conditions and returns the selected action
// list unchanged. An empty condition list matches.
func Evaluate(r Rule, snapshot facts.Snapshot, now time.Time) (Result, error) {
	if !r.IsActive {
		return Result{RuleID: r.ID, Skipped: true}, nil
	}

	matched, err := condition.EvaluateAll(r.Conditions, r.ConditionLogic, snapshot, now)
	if err != nil {
		return Result{RuleID: r.ID}, validation.Within(subject, r.ID, err)
	}
	if matched {
		return Result{RuleID: r.ID, Matched: true, Actions: r.TrueActions}, nil
	}
	return Result{RuleID: r.ID, Actions: r.FalseActions}, nil
}

// SortByPriority orders rules by ascending priority, keeping the input order
// for equal priorities. The input slice is not modified.
func SortByPriority(rules []Rule) []Rule {
	out := append([]Rule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Policy decides which rules run when several apply to one trigger.
type Policy string

const (
	// PolicyAll runs the selected actions of every active rule in priority order.
	PolicyAll Policy = "all"
	// PolicyFirst stops after the first rule whose conditions matched.
	// Rules before it that did not match still contribute their false actions.
	PolicyFirst Policy = "first"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAll, PolicyFirst:
		return Policy(s), nil
	case "":
		return PolicyAll, nil
	}
	return "", fmt.Errorf("unknown rule match policy %q", s)
}

// EvaluateSet sorts rules by priority and evaluates them under policy.
// Results are returned in evaluation order and include skipped rules.
func EvaluateSet(rules []Rule, policy Policy, snapshot facts.Snapshot, now time.Time) ([]Result, error) {
	var results []Result
	for _, r := range SortByPriority(rules) {
		res, err := Evaluate(r, snapshot, now)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if policy == PolicyFirst && res.Matched {
			break
		}
	}
	return results, nil
}

// Actions flattens the selected actions of results, in order.
func Actions(results []Result) []action.Action {
	var out []action.Action
	for _, res := range results {
		out = append(out, res.Actions...)
	}
	return out
}
