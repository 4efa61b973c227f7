package facts

import (
	"context"
	"time"

	"go-automation/internal/database"
	"go-automation/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContactRepository interface {
	Get(ctx context.Context, recipientID string) (*Contact, error)
	Upsert(ctx context.Context, contact *Contact) error
	AddTag(ctx context.Context, recipientID, tag string) error
	RemoveTag(ctx context.Context, recipientID, tag string) error
	SetField(ctx context.Context, recipientID, field string, value interface{}) error
	// ListIDs returns the recipient ids of contacts matching filter.
	ListIDs(ctx context.Context, filter bson.M, limit int64) ([]string, error)
}

type ContactRepositoryImpl struct {
	collection *mongo.Collection
}

func NewContactRepository(db *database.MongodbDB) ContactRepository {
	return &ContactRepositoryImpl{
		collection: db.DB.Collection(database.ContactsCollection),
	}
}

// Get returns nil, nil for an unknown recipient.
func (r *ContactRepositoryImpl) Get(ctx context.Context, recipientID string) (*Contact, error) {
	var contact Contact
	err := r.collection.FindOne(ctx, bson.M{"recipient_id": recipientID}).Decode(&contact)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepositoryImpl) Upsert(ctx context.Context, contact *Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"recipient_id": contact.RecipientID}, contact, opts)
	return err
}

func (r *ContactRepositoryImpl) AddTag(ctx context.Context, recipientID, tag string) error {
	return r.update(ctx, recipientID, bson.M{"$addToSet": bson.M{"tags": tag}})
}

func (r *ContactRepositoryImpl) RemoveTag(ctx context.Context, recipientID, tag string) error {
	return r.update(ctx, recipientID, bson.M{"$pull": bson.M{"tags": tag}})
}

func (r *ContactRepositoryImpl) SetField(ctx context.Context, recipientID, field string, value interface{}) error {
	return r.update(ctx, recipientID, bson.M{"$set": bson.M{"attributes." + field: value}})
}

// update upserts so mutations for a recipient without a profile create one.
func (r *ContactRepositoryImpl) update(ctx context.Context, recipientID string, update bson.M) error {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"recipient_id": recipientID}, update, opts)
	return err
}

func (r *ContactRepositoryImpl) ListIDs(ctx context.Context, filter bson.M, limit int64) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"recipient_id": 1}).SetSort(bson.M{"recipient_id": 1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		RecipientID string `bson:"recipient_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.RecipientID)
	}
	return ids, nil
}

// AudienceFilter compiles conditions into a candidate filter over contact
// documents, using the fact names Contact.Facts produces. Candidates still
// need condition.EvaluateAll on their facts.
func AudienceFilter(conditions []condition.Condition, logic condition.Logic, now time.Time) (bson.M, error) {
	c := condition.NewCompiler("attributes.", now)
	c.Fields["email"] = "email"
	c.Fields["tags"] = "tags"
	return c.Compile(conditions, logic)
}
