package database

import (
	"context"
	"log"
	"time"

	"go-automation/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// Collection names
const (
	RulesCollection            = "automation_rules"
	CampaignsCollection        = "campaigns"
	ExecutionsCollection       = "campaign_executions"
	ExecutionArchiveCollection = "campaign_executions_archive"
	DeferredCollection         = "deferred_actions"
	TemplatesCollection        = "email_templates"
	ContactsCollection         = "contacts"
	AuditCollection            = "audit_logs"
	TicksCollection            = "scheduler_ticks"
	LogsCollection             = "engine_logs"
)

type MongodbDB struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect opens and pings a MongoDB connection.
func Connect(ctx context.Context, cfg *config.Config) (*MongodbDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB!")
	return &MongodbDB{Client: client, DB: client.Database(cfg.DBName)}, nil
}

// NewDatabase creates a new MongoDB database connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*MongodbDB, error) {
	db, err := Connect(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Disconnecting from MongoDB...")
			return db.Client.Disconnect(ctx)
		},
	})

	return db, nil
}

// EnsureIndexes creates the indexes the stores rely on. The unique
// recipient+campaign index backs the one-state-per-pair invariant.
func (m *MongodbDB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		ExecutionsCollection: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "campaign_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "resume_at", Value: 1}}},
		},
		ExecutionArchiveCollection: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "campaign_id", Value: 1}, {Key: "archived_at", Value: -1}}},
		},
		DeferredCollection: {
			{Keys: bson.D{{Key: "due_at", Value: 1}}},
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "campaign_id", Value: 1}}},
		},
		RulesCollection: {
			{Keys: bson.D{{Key: "rule_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "trigger", Value: 1}, {Key: "priority", Value: 1}}},
		},
		CampaignsCollection: {
			{Keys: bson.D{{Key: "campaign_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TemplatesCollection: {
			{Keys: bson.D{{Key: "template_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ContactsCollection: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := m.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
