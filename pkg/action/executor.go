// Package action defines campaign actions, the side-effect descriptors they
// produce, and the executor that applies them to an execution state.
//
// The executor performs no I/O: sends, webhooks and transfers come back as
// Effect values for the caller to dispatch, exactly once per execution.
package action

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-automation/pkg/state"
	"go-automation/pkg/timeframe"
)

// ErrTerminalState is returned when an action targets a stopped or
// completed state.
var ErrTerminalState = errors.New("execution state is terminal")

type Executor struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Executor)

// WithClock sets the time source used for wait deadlines and audit stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithIDs sets the effect id generator.
func WithIDs(newID func() string) Option {
	return func(e *Executor) { e.newID = newID }
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now exposes the executor clock so callers share one time source.
func (e *Executor) Now() time.Time {
	return e.now()
}

// Execute applies a to st. On success it returns the new state and at most
// one effect. On failure st is returned unmodified.
func (e *Executor) Execute(a Action, st state.State) (state.State, *Effect, error) {
	if err := a.Validate(); err != nil {
		return st, nil, err
	}
	if st.Status.Terminal() {
		return st, nil, fmt.Errorf("%s action %q: %w", a.Type, a.ID, ErrTerminalState)
	}

	now := e.now()
	next := st.Clone()
	next.UpdatedAt = now

	var payload EffectPayload
	switch p := a.payload().(type) {
	case SendEmail:
		next.LastEmailAt = &now
		payload = EmailEffect{TemplateID: p.TemplateID, RecipientID: st.RecipientID}

	case Wait:
		d, err := timeframe.Of(p.Duration, p.DurationUnit)
		if err != nil {
			return st, nil, err
		}
		resume := now.Add(d)
		next.Status = state.StatusWaiting
		next.ResumeAt = &resume

	case AddTag:
		tagged, changed := next.WithTag(p.TagName)
		if !changed {
			return st, nil, nil
		}
		next = tagged
		payload = TagMutationEffect{Tag: p.TagName, Op: TagAdded}

	case RemoveTag:
		untagged, changed := next.WithoutTag(p.TagName)
		if !changed {
			return st, nil, nil
		}
		next = untagged
		payload = TagMutationEffect{Tag: p.TagName, Op: TagRemoved}

	case UpdateField:
		next.Fields[p.FieldName] = p.FieldValue
		payload = FieldMutationEffect{Field: p.FieldName, Value: p.FieldValue}

	case Webhook:
		method := p.Method
		if method == "" {
			method = "POST"
		}
		body := make(map[string]any, len(p.Payload)+2)
		for k, v := range p.Payload {
			body[k] = v
		}
		body["recipientId"] = st.RecipientID
		body["campaignId"] = st.CampaignID
		payload = WebhookEffect{URL: p.WebhookURL, Method: method, Headers: p.Headers, Payload: body}

	case StopSequence:
		next.Status = state.StatusStopped
		next.CurrentStepID = nil
		next.ResumeAt = nil

	case MoveToSequence:
		next.Status = state.StatusCompleted
		next.ResumeAt = nil
		payload = SequenceTransferEffect{TargetCampaignID: p.SequenceID}

	default:
		return st, nil, fmt.Errorf("unsupported action type: %s", a.Type)
	}

	if payload == nil {
		return next, nil, nil
	}
	return next, &Effect{
		ID:          e.newID(),
		Kind:        payload.EffectKind(),
		ActionID:    a.ID,
		RecipientID: st.RecipientID,
		CampaignID:  st.CampaignID,
		CreatedAt:   now,
		Payload:     payload,
	}, nil
}

// Batch is the outcome of ExecuteAll.
type Batch struct {
	State    state.State
	Effects  []Effect
	Executed int
	// Remaining holds the actions after a wait; they are due at State.ResumeAt.
	Remaining []Action
}

// ExecuteAll applies actions in order. It stops after a terminal action
// (stop_sequence, move_to_sequence) and after a wait, returning the rest of
// the list in Remaining. When an action fails the batch so far is returned
// with the error.
func (e *Executor) ExecuteAll(actions []Action, st state.State) (Batch, error) {
	batch := Batch{State: st}
	for i, a := range actions {
		next, effect, err := e.Execute(a, batch.State)
		if err != nil {
			return batch, fmt.Errorf("action %d (%s): %w", i, a.Type, err)
		}
		batch.State = next
		batch.Executed++
		if effect != nil {
			batch.Effects = append(batch.Effects, *effect)
		}
		if next.Status == state.StatusWaiting {
			batch.Remaining = append([]Action(nil), actions[i+1:]...)
			return batch, nil
		}
		if next.Status.Terminal() {
			return batch, nil
		}
	}
	return batch, nil
}
