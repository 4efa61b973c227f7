package graph

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoBudget is returned when Run is called without a step or time limit.
	ErrNoBudget = errors.New("graph run requires a step or duration budget")
	// ErrUnknownStep is returned when a state points at a step the graph no longer has.
	ErrUnknownStep = errors.New("step not found in campaign")
	// ErrInactive is returned when starting a recipient on an inactive campaign.
	ErrInactive = errors.New("campaign is not active")
)

// RunawayGraphError reports that a run hit its budget while the recipient
// was still active. StepID is the step that remains current.
type RunawayGraphError struct {
	CampaignID string
	StepID     string
	Steps      int
	Elapsed    time.Duration
}

func (e *RunawayGraphError) Error() string {
	return fmt.Sprintf("campaign %s: run exceeded its budget at step %q after %d steps (%s)",
		e.CampaignID, e.StepID, e.Steps, e.Elapsed.Round(time.Millisecond))
}

func IsRunaway(err error) bool {
	var re *RunawayGraphError
	return errors.As(err, &re)
}
