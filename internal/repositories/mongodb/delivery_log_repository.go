package mongodb

import (
	"context"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryLogRepository implements the repositories.DeliveryLogRepository interface
type DeliveryLogRepository struct {
	collection *mongo.Collection
}

// NewDeliveryLogRepository creates a new DeliveryLogRepository
func NewDeliveryLogRepository(db *mongo.Database) repositories.DeliveryLogRepository {
	return &DeliveryLogRepository{
		collection: db.Collection("delivery_logs"),
	}
}

var _ repositories.DeliveryLogRepository = (*DeliveryLogRepository)(nil)

// Create records one fan-out send attempt
func (r *DeliveryLogRepository) Create(ctx context.Context, log *models.DeliveryLog) error {
	log.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return err
	}
	log.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByCampaign finds delivery logs for a campaign instance, newest first
func (r *DeliveryLogRepository) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.DeliveryLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"campaignId": campaignID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*models.DeliveryLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*models.DeliveryLog{}
	}
	return logs, nil
}
