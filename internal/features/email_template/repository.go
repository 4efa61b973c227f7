package email_template

import (
	"context"
	"time"

	"go-automation/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EmailTemplateRepository interface {
	Create(ctx context.Context, template *EmailTemplate) error
	GetByID(ctx context.Context, id string) (*EmailTemplate, error)
	List(ctx context.Context) ([]EmailTemplate, error)
	Update(ctx context.Context, template *EmailTemplate) error
	Delete(ctx context.Context, id string) error
}

type EmailTemplateRepositoryImpl struct {
	collection *mongo.Collection
}

func NewEmailTemplateRepository(db *database.MongodbDB) EmailTemplateRepository {
	return &EmailTemplateRepositoryImpl{
		collection: db.DB.Collection(database.TemplatesCollection),
	}
}

func (r *EmailTemplateRepositoryImpl) Create(ctx context.Context, template *EmailTemplate) error {
	template.CreatedAt = time.Now().UTC()
	template.UpdatedAt = template.CreatedAt

	_, err := r.collection.InsertOne(ctx, template)
	return err
}

// GetByID returns nil, nil when no template has the id.
func (r *EmailTemplateRepositoryImpl) GetByID(ctx context.Context, id string) (*EmailTemplate, error) {
	var template EmailTemplate
	err := r.collection.FindOne(ctx, bson.M{"template_id": id}).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &template, nil
}

func (r *EmailTemplateRepositoryImpl) List(ctx context.Context) ([]EmailTemplate, error) {
	opts := options.Find().SetSort(bson.M{"name": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	templates := []EmailTemplate{}
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *EmailTemplateRepositoryImpl) Update(ctx context.Context, template *EmailTemplate) error {
	template.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"name":        template.Name,
			"subject":     template.Subject,
			"body":        template.Body,
			"description": template.Description,
			"updated_at":  template.UpdatedAt,
		},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"template_id": template.TemplateID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *EmailTemplateRepositoryImpl) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"template_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
