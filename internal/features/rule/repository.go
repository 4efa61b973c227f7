package rule

import (
	"context"
	"time"

	"go-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *AutomationRule) error
	GetByID(ctx context.Context, id string) (*AutomationRule, error)
	List(ctx context.Context, trigger string) ([]AutomationRule, error)
	// ListActive returns active rules for trigger, including rules that
	// name no trigger.
	ListActive(ctx context.Context, trigger string) ([]AutomationRule, error)
	Update(ctx context.Context, rule *AutomationRule) error
	Upsert(ctx context.Context, rule *AutomationRule) error
	Delete(ctx context.Context, id string) error
	Enable(ctx context.Context, id string, active bool) error
}

type RuleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRuleRepository(mongodb *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{
		Collection: mongodb.DB.Collection(database.RulesCollection),
	}
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *AutomationRule) error {
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	_, err := r.Collection.InsertOne(ctx, rule)
	return err
}

func (r *RuleRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationRule, error) {
	var rule AutomationRule
	err := r.Collection.FindOne(ctx, bson.M{"rule_id": id}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) List(ctx context.Context, trigger string) ([]AutomationRule, error) {
	filter := bson.M{}
	if trigger != "" {
		filter["trigger"] = trigger
	}
	return r.find(ctx, filter)
}

func (r *RuleRepositoryImpl) ListActive(ctx context.Context, trigger string) ([]AutomationRule, error) {
	filter := bson.M{
		"is_active": true,
		"$or": []bson.M{
			{"trigger": trigger},
			{"trigger": bson.M{"$exists": false}},
			{"trigger": ""},
		},
	}
	return r.find(ctx, filter)
}

func (r *RuleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]AutomationRule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "created_at", Value: 1}})
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	rules := []AutomationRule{}
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *AutomationRule) error {
	rule.UpdatedAt = time.Now().UTC()
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"rule_id": rule.ID}, rule)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *RuleRepositoryImpl) Upsert(ctx context.Context, rule *AutomationRule) error {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"rule_id": rule.ID}, rule, options.Replace().SetUpsert(true))
	return err
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"rule_id": id})
	return err
}

func (r *RuleRepositoryImpl) Enable(ctx context.Context, id string, active bool) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"rule_id": id}, bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}})
	return err
}
