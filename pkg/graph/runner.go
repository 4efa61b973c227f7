package graph

import (
	"context"
	"fmt"
	"time"

	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/facts"
	"go-automation/pkg/state"
)

// Budget bounds one Run invocation. A zero field means no limit on that
// axis, but at least one must be set.
type Budget struct {
	MaxSteps    int
	MaxDuration time.Duration
}

// Transition records one move along an edge.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
	Edge Edge   `json:"edge"`
}

type RunResult struct {
	State       state.State     `json:"state"`
	Effects     []action.Effect `json:"effects"`
	Transitions []Transition    `json:"transitions"`
	// Steps is the number of steps processed in this invocation.
	Steps int `json:"steps"`
}

// CheckpointFunc receives the state after every processed step together with
// the effects that step produced.
type CheckpointFunc func(ctx context.Context, st state.State, effects []action.Effect) error

// Runner walks recipients through campaign graphs. It does not block or
// sleep: wait steps park the state and return.
//
// Run must not be called concurrently for the same recipient and campaign.
type Runner struct {
	exec   *action.Executor
	onStep CheckpointFunc
	since  func(time.Time) time.Duration
}

type RunnerOption func(*Runner)

// OnStep installs a checkpoint hook. A hook error ends the run; the result
// then holds the last state the hook accepted.
func OnStep(fn CheckpointFunc) RunnerOption {
	return func(r *Runner) { r.onStep = fn }
}

func NewRunner(exec *action.Executor, opts ...RunnerOption) *Runner {
	if exec == nil {
		exec = action.NewExecutor()
	}
	r := &Runner{exec: exec, since: time.Since}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start creates the execution state for a recipient entering g.
func (r *Runner) Start(g Graph, recipientID string) (state.State, error) {
	if !g.IsActive {
		return state.State{}, fmt.Errorf("campaign %s: %w", g.ID, ErrInactive)
	}
	if err := g.Validate(); err != nil {
		return state.State{}, err
	}
	start := g.StartStepID
	return state.New(recipientID, g.ID, &start, r.exec.Now()), nil
}

// Run advances st through g until the recipient waits, finishes, or the
// budget runs out. Terminal states and states waiting for a future resumeAt
// are returned unchanged.
func (r *Runner) Run(ctx context.Context, g Graph, st state.State, snapshot facts.Snapshot, budget Budget) (RunResult, error) {
	res := RunResult{State: st}
	if budget.MaxSteps <= 0 && budget.MaxDuration <= 0 {
		return res, ErrNoBudget
	}
	if st.Status.Terminal() {
		return res, nil
	}
	if err := g.Validate(); err != nil {
		return res, err
	}

	idx := g.Index()
	now := r.exec.Now()

	if st.Status == state.StatusWaiting {
		if !st.Due(now) {
			return res, nil
		}
		step, ok := idx[st.Step()]
		if !ok {
			return res, fmt.Errorf("campaign %s: resume at %q: %w", g.ID, st.Step(), ErrUnknownStep)
		}
		next, tr := follow(st.Resumed(now), step, EdgeNext)
		if err := r.checkpoint(ctx, &res, next, nil, tr); err != nil {
			return res, err
		}
	}

	started := time.Now()
	for res.State.Status == state.StatusActive {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		elapsed := r.since(started)
		if (budget.MaxSteps > 0 && res.Steps >= budget.MaxSteps) ||
			(budget.MaxDuration > 0 && elapsed >= budget.MaxDuration) {
			return res, &RunawayGraphError{CampaignID: g.ID, StepID: res.State.Step(), Steps: res.Steps, Elapsed: elapsed}
		}

		step, ok := idx[res.State.Step()]
		if !ok {
			return res, fmt.Errorf("campaign %s: step %q: %w", g.ID, res.State.Step(), ErrUnknownStep)
		}

		next, effects, tr, err := r.process(step, res.State, snapshot)
		if err != nil {
			return res, fmt.Errorf("campaign %s: step %q: %w", g.ID, step.ID, err)
		}
		res.Steps++
		if err := r.checkpoint(ctx, &res, next, effects, tr); err != nil {
			return res, err
		}
	}
	return res, nil
}

// process runs one step and moves the state along the chosen edge.
func (r *Runner) process(step Step, st state.State, snapshot facts.Snapshot) (state.State, []action.Effect, *Transition, error) {
	if step.Type == StepCondition {
		d, _ := derefStepData(step.Data).(ConditionStep)
		ok, err := condition.EvaluateAll(d.Conditions, d.ConditionLogic, snapshot, r.exec.Now())
		if err != nil {
			return st, nil, nil, err
		}
		edge := EdgeNo
		if ok {
			edge = EdgeYes
		}
		next := st.Clone()
		next.UpdatedAt = r.exec.Now()
		next, tr := follow(next, step, edge)
		return next, nil, tr, nil
	}

	a, ok := actionOf(step)
	if !ok {
		return st, nil, nil, fmt.Errorf("unsupported step type %q", step.Type)
	}
	next, effect, err := r.exec.Execute(a, st)
	if err != nil {
		return st, nil, nil, err
	}
	var effects []action.Effect
	if effect != nil {
		effects = append(effects, *effect)
	}
	// Waiting states stay on the wait step; its next edge is taken on resume.
	if next.Status != state.StatusActive {
		return next, effects, nil, nil
	}
	next, tr := follow(next, step, EdgeNext)
	return next, effects, tr, nil
}

// follow moves st along edge from step, or completes it when there is no
// such edge.
func follow(st state.State, step Step, edge Edge) (state.State, *Transition) {
	to := step.Connections.target(edge)
	if to == "" {
		st.Status = state.StatusCompleted
		st.ResumeAt = nil
		return st, nil
	}
	st.CurrentStepID = state.StringPtr(to)
	return st, &Transition{From: step.ID, To: to, Edge: edge}
}

func (r *Runner) checkpoint(ctx context.Context, res *RunResult, next state.State, effects []action.Effect, tr *Transition) error {
	if r.onStep != nil {
		if err := r.onStep(ctx, next, effects); err != nil {
			return fmt.Errorf("checkpoint %s: %w", next.Key(), err)
		}
	}
	res.State = next
	res.Effects = append(res.Effects, effects...)
	if tr != nil {
		res.Transitions = append(res.Transitions, *tr)
	}
	return nil
}
