package execution

import (
	"context"
	"fmt"
	"time"

	"go-automation/internal/common/api"
	"go-automation/internal/database"
	"go-automation/pkg/state"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StateRepository interface {
	Get(ctx context.Context, recipientID, campaignID string) (*state.State, error)
	// Save writes st if the stored version still equals st.Version, then
	// increments st.Version. A zero version inserts.
	Save(ctx context.Context, st *state.State) error
	FindDue(ctx context.Context, now time.Time, limit int64) ([]state.State, error)
	FindTerminal(ctx context.Context, limit int64) ([]state.State, error)
	List(ctx context.Context, filter Filter) ([]state.State, error)
	Archive(ctx context.Context, st state.State) error
	Delete(ctx context.Context, recipientID, campaignID string) error
}

type StateRepositoryImpl struct {
	collection *mongo.Collection
	archive    *mongo.Collection
}

func NewStateRepository(db *database.MongodbDB) StateRepository {
	return &StateRepositoryImpl{
		collection: db.DB.Collection(database.ExecutionsCollection),
		archive:    db.DB.Collection(database.ExecutionArchiveCollection),
	}
}

func key(recipientID, campaignID string) bson.M {
	return bson.M{"recipient_id": recipientID, "campaign_id": campaignID}
}

// Get returns nil, nil when the recipient has no state for the campaign.
func (r *StateRepositoryImpl) Get(ctx context.Context, recipientID, campaignID string) (*state.State, error) {
	var st state.State
	err := r.collection.FindOne(ctx, key(recipientID, campaignID)).Decode(&st)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	st = st.Normalize()
	return &st, nil
}

func (r *StateRepositoryImpl) Save(ctx context.Context, st *state.State) error {
	expected := st.Version
	next := *st
	next.Version = expected + 1

	if expected == 0 {
		if _, err := r.collection.InsertOne(ctx, next); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("state %s already exists: %w", st.Key(), api.ErrConflict)
			}
			return err
		}
		st.Version = next.Version
		return nil
	}

	filter := key(st.RecipientID, st.CampaignID)
	filter["version"] = expected
	res, err := r.collection.ReplaceOne(ctx, filter, next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("state %s changed since version %d: %w", st.Key(), expected, api.ErrConflict)
	}
	st.Version = next.Version
	return nil
}

func (r *StateRepositoryImpl) FindDue(ctx context.Context, now time.Time, limit int64) ([]state.State, error) {
	filter := bson.M{
		"status":    state.StatusWaiting,
		"resume_at": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.M{"resume_at": 1}).SetLimit(limit)
	return r.find(ctx, r.collection, filter, opts)
}

func (r *StateRepositoryImpl) FindTerminal(ctx context.Context, limit int64) ([]state.State, error) {
	filter := bson.M{"status": bson.M{"$in": []state.Status{state.StatusStopped, state.StatusCompleted}}}
	opts := options.Find().SetSort(bson.M{"updated_at": 1}).SetLimit(limit)
	return r.find(ctx, r.collection, filter, opts)
}

func (r *StateRepositoryImpl) List(ctx context.Context, filter Filter) ([]state.State, error) {
	query := bson.M{}
	if filter.CampaignID != "" {
		query["campaign_id"] = filter.CampaignID
	}
	if filter.RecipientID != "" {
		query["recipient_id"] = filter.RecipientID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	return r.find(ctx, r.collection, query, opts)
}

// Archive inserts st into the archive collection and removes the live copy.
func (r *StateRepositoryImpl) Archive(ctx context.Context, st state.State) error {
	doc := ArchivedState{State: st, ArchivedAt: time.Now().UTC()}
	if _, err := r.archive.InsertOne(ctx, doc); err != nil {
		return err
	}
	return r.Delete(ctx, st.RecipientID, st.CampaignID)
}

func (r *StateRepositoryImpl) Delete(ctx context.Context, recipientID, campaignID string) error {
	_, err := r.collection.DeleteOne(ctx, key(recipientID, campaignID))
	return err
}

func (r *StateRepositoryImpl) find(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]state.State, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var states []state.State
	if err = cursor.All(ctx, &states); err != nil {
		return nil, err
	}
	for i := range states {
		states[i] = states[i].Normalize()
	}
	return states, nil
}

type DeferredRepository interface {
	SaveDeferred(ctx context.Context, batch DeferredBatch) error
	FindDueDeferred(ctx context.Context, now time.Time, limit int64) ([]DeferredBatch, error)
	DeleteDeferred(ctx context.Context, id string) error
}

type DeferredRepositoryImpl struct {
	collection *mongo.Collection
}

func NewDeferredRepository(db *database.MongodbDB) DeferredRepository {
	return &DeferredRepositoryImpl{
		collection: db.DB.Collection(database.DeferredCollection),
	}
}

func (r *DeferredRepositoryImpl) SaveDeferred(ctx context.Context, batch DeferredBatch) error {
	_, err := r.collection.InsertOne(ctx, batch)
	return err
}

func (r *DeferredRepositoryImpl) FindDueDeferred(ctx context.Context, now time.Time, limit int64) ([]DeferredBatch, error) {
	opts := options.Find().SetSort(bson.M{"due_at": 1}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"due_at": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []DeferredBatch
	if err = cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *DeferredRepositoryImpl) DeleteDeferred(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
