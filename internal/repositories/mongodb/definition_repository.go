package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefinitionRepository implements the repositories.DefinitionRepository interface
type DefinitionRepository struct {
	collection *mongo.Collection
}

// NewDefinitionRepository creates a new DefinitionRepository
func NewDefinitionRepository(db *mongo.Database) repositories.DefinitionRepository {
	return &DefinitionRepository{
		collection: db.Collection("campaign_definitions"),
	}
}

var _ repositories.DefinitionRepository = (*DefinitionRepository)(nil)

// Upsert creates or replaces the definition for a (kind, instanceKey)
func (r *DefinitionRepository) Upsert(ctx context.Context, definition *models.CampaignDefinition) error {
	now := time.Now()
	definition.UpdatedAt = now
	filter := bson.M{"kind": definition.Kind, "instanceKey": definition.InstanceKey}
	update := bson.M{
		"$set": bson.M{
			"startLocal": definition.StartLocal,
			"title":      definition.Title,
			"content":    definition.Content,
			"updatedAt":  now,
		},
		"$setOnInsert": bson.M{
			"kind":        definition.Kind,
			"instanceKey": definition.InstanceKey,
			"createdAt":   now,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// FindByKindAndKey finds a definition by its (kind, instanceKey) identity
func (r *DefinitionRepository) FindByKindAndKey(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignDefinition, error) {
	var definition models.CampaignDefinition
	filter := bson.M{"kind": kind, "instanceKey": instanceKey}
	err := r.collection.FindOne(ctx, filter).Decode(&definition)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &definition, nil
}

// ListInstanceKeys lists all instance keys defined for a campaign kind
func (r *DefinitionRepository) ListInstanceKeys(ctx context.Context, kind models.CampaignKind) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "instanceKey", bson.M{"kind": kind})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

// FindAll finds all campaign definitions
func (r *DefinitionRepository) FindAll(ctx context.Context) ([]*models.CampaignDefinition, error) {
	opts := options.Find().SetSort(bson.M{"kind": 1, "instanceKey": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var definitions []*models.CampaignDefinition
	if err := cursor.All(ctx, &definitions); err != nil {
		return nil, err
	}
	if definitions == nil {
		definitions = []*models.CampaignDefinition{}
	}
	return definitions, nil
}
