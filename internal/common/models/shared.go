package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	// ActorKey carries the caller name recorded in audit logs.
	ActorKey ContextKey = "actor"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionAutomation AuditAction = "AUTOMATION"
	AuditActionCampaign   AuditAction = "CAMPAIGN"
	AuditActionTemplate   AuditAction = "TEMPLATE"
	AuditActionScheduler  AuditAction = "SCHEDULER"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`                       // The collection name
	RecordID  string             `bson:"record_id" json:"record_id"`                 // The ID of the definition or execution
	ActorID   string             `bson:"actor_id" json:"actor_id"`                   // "system" unless set on the context
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"` // field -> {old, new}
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Log is one engine log line shipped to the engine_logs collection.
type Log struct {
	Message       string         `bson:"message" json:"message"`
	Level         string         `bson:"level" json:"level"`
	LogLevelId    int            `bson:"log_level_id" json:"log_level_id"`
	Caller        string         `bson:"caller,omitempty" json:"caller,omitempty"`
	RecipientID   string         `bson:"recipient_id,omitempty" json:"recipient_id,omitempty"`
	CampaignID    string         `bson:"campaign_id,omitempty" json:"campaign_id,omitempty"`
	Fields        map[string]any `bson:"fields,omitempty" json:"fields,omitempty"`
	ApplicationId string         `bson:"application_id" json:"application_id"`
	CreatedOnUtc  time.Time      `bson:"created_on_utc" json:"created_on_utc"`
}
