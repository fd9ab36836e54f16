package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CampaignRepository implements the repositories.CampaignRepository interface
type CampaignRepository struct {
	collection *mongo.Collection
}

// NewCampaignRepository creates a new CampaignRepository
func NewCampaignRepository(db *mongo.Database) repositories.CampaignRepository {
	return &CampaignRepository{
		collection: db.Collection("campaign_instances"),
	}
}

var _ repositories.CampaignRepository = (*CampaignRepository)(nil)

// Create creates a new campaign instance
func (r *CampaignRepository) Create(ctx context.Context, instance *models.CampaignInstance) error {
	instance.CreatedAt = time.Now()
	instance.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, instance)
	if err != nil {
		return err
	}
	instance.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a campaign instance by ID
func (r *CampaignRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.CampaignInstance, error) {
	var instance models.CampaignInstance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&instance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

// FindByKindAndKey finds a campaign instance by its (kind, instanceKey) identity
func (r *CampaignRepository) FindByKindAndKey(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignInstance, error) {
	var instance models.CampaignInstance
	filter := bson.M{"kind": kind, "instanceKey": instanceKey}
	err := r.collection.FindOne(ctx, filter).Decode(&instance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

// FindAll finds all campaign instances, newest first
func (r *CampaignRepository) FindAll(ctx context.Context) ([]*models.CampaignInstance, error) {
	opts := options.Find().SetSort(bson.M{"startAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var instances []*models.CampaignInstance
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	if instances == nil {
		instances = []*models.CampaignInstance{}
	}
	return instances, nil
}

// Update updates a campaign instance
func (r *CampaignRepository) Update(ctx context.Context, instance *models.CampaignInstance) error {
	instance.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": instance.ID}, instance)
	return err
}

// MarkStopped deactivates an instance and stamps stoppedAt exactly once.
// The filter requires isActive so running the close twice is a no-op.
func (r *CampaignRepository) MarkStopped(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "isActive": true}
	update := bson.M{"$set": bson.M{
		"isActive":  false,
		"stoppedAt": at,
		"updatedAt": time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Reactivate reopens a stopped instance
func (r *CampaignRepository) Reactivate(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"isActive": true, "updatedAt": time.Now()},
		"$unset": bson.M{"stoppedAt": ""},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// NextSequenceNumber returns the next per-kind display ordinal
func (r *CampaignRepository) NextSequenceNumber(ctx context.Context, kind models.CampaignKind) (int, error) {
	opts := options.FindOne().SetSort(bson.M{"sequenceNumber": -1})
	var latest models.CampaignInstance
	err := r.collection.FindOne(ctx, bson.M{"kind": kind}, opts).Decode(&latest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 1, nil
		}
		return 0, err
	}
	return latest.SequenceNumber + 1, nil
}
