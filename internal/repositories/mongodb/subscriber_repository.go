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

// SubscriberRepository implements the repositories.SubscriberRepository interface
type SubscriberRepository struct {
	collection *mongo.Collection
}

// NewSubscriberRepository creates a new SubscriberRepository
func NewSubscriberRepository(db *mongo.Database) repositories.SubscriberRepository {
	return &SubscriberRepository{
		collection: db.Collection("subscribers"),
	}
}

var _ repositories.SubscriberRepository = (*SubscriberRepository)(nil)

// Create creates a new subscriber
func (r *SubscriberRepository) Create(ctx context.Context, subscriber *models.Subscriber) error {
	subscriber.CreatedAt = time.Now()
	subscriber.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, subscriber)
	if err != nil {
		return err
	}
	subscriber.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a subscriber by ID
func (r *SubscriberRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&subscriber)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

// FindByChatRef finds a subscriber by delivery-channel reference
func (r *SubscriberRepository) FindByChatRef(ctx context.Context, chatRef string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := r.collection.FindOne(ctx, bson.M{"chatRef": chatRef}).Decode(&subscriber)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

// FindSubscribed finds all currently subscribed recipients
func (r *SubscriberRepository) FindSubscribed(ctx context.Context) ([]*models.Subscriber, error) {
	opts := options.Find().SetSort(bson.M{"subscribedAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"subscribed": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subscribers []*models.Subscriber
	if err := cursor.All(ctx, &subscribers); err != nil {
		return nil, err
	}
	if subscribers == nil {
		subscribers = []*models.Subscriber{}
	}
	return subscribers, nil
}

// Resubscribe re-enables delivery for a subscriber
func (r *SubscriberRepository) Resubscribe(ctx context.Context, chatRef string, at time.Time) error {
	update := bson.M{
		"$set":   bson.M{"subscribed": true, "subscribedAt": at, "updatedAt": time.Now()},
		"$unset": bson.M{"unsubscribedAt": ""},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"chatRef": chatRef}, update)
	return err
}

// Unsubscribe disables delivery for a subscriber
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, chatRef string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"subscribed":     false,
		"unsubscribedAt": at,
		"updatedAt":      time.Now(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"chatRef": chatRef}, update)
	return err
}

// Count counts all subscribers
func (r *SubscriberRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
