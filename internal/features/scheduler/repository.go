package scheduler

import (
	"context"
	"time"

	"go-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TickRepository interface {
	CreateLog(ctx context.Context, log *TickLog) error
	UpdateLog(ctx context.Context, log *TickLog) error
	ListLogs(ctx context.Context, limit int64) ([]TickLog, error)
}

type TickRepositoryImpl struct {
	collection *mongo.Collection
}

func NewTickRepository(mongodb *database.MongodbDB) TickRepository {
	return &TickRepositoryImpl{
		collection: mongodb.DB.Collection(database.TicksCollection),
	}
}

func (r *TickRepositoryImpl) CreateLog(ctx context.Context, log *TickLog) error {
	log.ID = primitive.NewObjectID()
	log.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *TickRepositoryImpl) UpdateLog(ctx context.Context, log *TickLog) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": log.ID}, bson.M{"$set": log})
	return err
}

func (r *TickRepositoryImpl) ListLogs(ctx context.Context, limit int64) ([]TickLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []TickLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
