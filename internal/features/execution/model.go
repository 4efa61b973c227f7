package execution

import (
	"fmt"
	"strings"
	"time"

	"go-automation/pkg/action"
	"go-automation/pkg/state"
)

// RetentionPolicy decides what happens to a state once it is terminal.
type RetentionPolicy string

const (
	RetentionKeep    RetentionPolicy = "keep"
	RetentionArchive RetentionPolicy = "archive"
	RetentionDelete  RetentionPolicy = "delete"
)

func ParseRetention(s string) (RetentionPolicy, error) {
	switch p := RetentionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RetentionKeep, nil
	case RetentionKeep, RetentionArchive, RetentionDelete:
		return p, nil
	default:
		return "", fmt.Errorf("unknown retention policy %q", s)
	}
}

// ArchivedState is one terminated run. A recipient that re-enrolls and
// terminates again gets another document rather than replacing this one.
type ArchivedState struct {
	state.State `bson:",inline"`
	ArchivedAt  time.Time `json:"archivedAt" bson:"archived_at"`
}

// DeferredBatch holds the rule actions that followed a wait. They run once
// DueAt has passed.
type DeferredBatch struct {
	ID          string          `json:"id" bson:"_id"`
	RecipientID string          `json:"recipientId" bson:"recipient_id"`
	CampaignID  string          `json:"campaignId" bson:"campaign_id"`
	Trigger     string          `json:"trigger" bson:"trigger"`
	Actions     []action.Action `json:"actions" bson:"actions"`
	DueAt       time.Time       `json:"dueAt" bson:"due_at"`
	CreatedAt   time.Time       `json:"createdAt" bson:"created_at"`
}

type Filter struct {
	CampaignID  string
	RecipientID string
	Status      string
	Limit       int64
}
