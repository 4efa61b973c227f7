package scheduler

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TickStatus string

const (
	TickRunning TickStatus = "running"
	TickSuccess TickStatus = "success"
	TickFailed  TickStatus = "failed"
	// TickSkipped means another instance held the tick lock.
	TickSkipped TickStatus = "skipped"
)

// TickLog records one scheduler pass over due executions.
type TickLog struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Source    string             `json:"source" bson:"source"` // "cron" or "manual"
	StartTime time.Time          `json:"startTime" bson:"start_time"`
	EndTime   *time.Time         `json:"endTime,omitempty" bson:"end_time,omitempty"`
	Status    TickStatus         `json:"status" bson:"status"`
	Processed int                `json:"processed" bson:"processed"`
	Resumed   int                `json:"resumed" bson:"resumed"`
	Failed    int                `json:"failed" bson:"failed"`
	Error     string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}
