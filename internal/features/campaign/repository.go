package campaign

import (
	"context"
	"time"

	"go-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context, activeOnly bool) ([]Campaign, error)
	Update(ctx context.Context, campaign *Campaign) error
	Upsert(ctx context.Context, campaign *Campaign) error
	Delete(ctx context.Context, id string) error
}

type CampaignRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewCampaignRepository(mongodb *database.MongodbDB) CampaignRepository {
	return &CampaignRepositoryImpl{
		Collection: mongodb.DB.Collection(database.CampaignsCollection),
	}
}

func (r *CampaignRepositoryImpl) Create(ctx context.Context, campaign *Campaign) error {
	campaign.CreatedAt = time.Now().UTC()
	campaign.UpdatedAt = campaign.CreatedAt
	_, err := r.Collection.InsertOne(ctx, campaign)
	return err
}

// GetByID returns nil, nil for an unknown campaign.
func (r *CampaignRepositoryImpl) GetByID(ctx context.Context, id string) (*Campaign, error) {
	var campaign Campaign
	err := r.Collection.FindOne(ctx, bson.M{"campaign_id": id}).Decode(&campaign)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepositoryImpl) List(ctx context.Context, activeOnly bool) ([]Campaign, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	campaigns := []Campaign{}
	if err = cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *Campaign) error {
	campaign.UpdatedAt = time.Now().UTC()
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"campaign_id": campaign.ID}, campaign)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *CampaignRepositoryImpl) Upsert(ctx context.Context, campaign *Campaign) error {
	now := time.Now().UTC()
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"campaign_id": campaign.ID}, campaign, options.Replace().SetUpsert(true))
	return err
}

func (r *CampaignRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"campaign_id": id})
	return err
}
