package campaign

import (
	"time"

	"go-automation/internal/features/dispatch"
	"go-automation/pkg/action"
	"go-automation/pkg/condition"
	"go-automation/pkg/graph"
	"go-automation/pkg/state"
)

// Campaign is a stored step graph.
type Campaign struct {
	graph.Graph `bson:",inline"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

type EnrollRequest struct {
	RecipientID string                 `json:"recipientId" validate:"required"`
	Facts       map[string]interface{} `json:"facts"`
}

type StopRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Reason      string `json:"reason"`
}

// AudienceRequest enrolls every contact matching the conditions.
type AudienceRequest struct {
	Conditions     []condition.Condition  `json:"conditions"`
	ConditionLogic condition.Logic        `json:"conditionLogic" validate:"required"`
	Limit          int64                  `json:"limit"`
	Facts          map[string]interface{} `json:"facts"`
}

// AudienceResult reports the store's candidates and, of those, the ones
// whose facts passed the conditions.
type AudienceResult struct {
	Candidates int               `json:"candidates"`
	Matched    int               `json:"matched"`
	Enrolled   []string          `json:"enrolled"`
	Excluded   []string          `json:"excluded"`
	Skipped    []string          `json:"skipped"`
	Failed     map[string]string `json:"failed"`
}

// RunOutcome is the result of one enroll or advance call.
type RunOutcome struct {
	State       state.State         `json:"state"`
	Effects     []action.Effect     `json:"effects"`
	Transitions []graph.Transition  `json:"transitions"`
	Steps       int                 `json:"steps"`
	Deliveries  []dispatch.Delivery `json:"deliveries"`
}
