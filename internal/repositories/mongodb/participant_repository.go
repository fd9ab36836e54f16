package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ParticipantRepository implements the repositories.ParticipantRepository interface.
// State transitions are single-document conditional updates: the filter names
// the expected current state, so concurrent writers race safely and exactly
// one of them observes ModifiedCount == 1.
type ParticipantRepository struct {
	collection *mongo.Collection
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *mongo.Database) repositories.ParticipantRepository {
	return &ParticipantRepository{
		collection: db.Collection("participants"),
	}
}

var _ repositories.ParticipantRepository = (*ParticipantRepository)(nil)

// Create creates a new participant record
func (r *ParticipantRepository) Create(ctx context.Context, record *models.ParticipantRecord) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}
	record.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a participant record by ID
func (r *ParticipantRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ParticipantRecord, error) {
	var record models.ParticipantRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindBySubscriberAndCampaign finds a record by its (subscriber, campaign) identity
func (r *ParticipantRepository) FindBySubscriberAndCampaign(ctx context.Context, subscriberID, campaignID primitive.ObjectID) (*models.ParticipantRecord, error) {
	var record models.ParticipantRecord
	filter := bson.M{"subscriberId": subscriberID, "campaignId": campaignID}
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindByCampaign finds all participant records for a campaign instance
func (r *ParticipantRepository) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]*models.ParticipantRecord, error) {
	return r.findMany(ctx, bson.M{"campaignId": campaignID})
}

// FindByCampaignAndState finds records for a campaign instance in a given state
func (r *ParticipantRepository) FindByCampaignAndState(ctx context.Context, campaignID primitive.ObjectID, state models.AttemptState) ([]*models.ParticipantRecord, error) {
	return r.findMany(ctx, bson.M{"campaignId": campaignID, "state": state})
}

// FindOutstanding finds answered records still awaiting an operator decision
func (r *ParticipantRepository) FindOutstanding(ctx context.Context, campaignID primitive.ObjectID) ([]*models.ParticipantRecord, error) {
	filter := bson.M{
		"campaignId": campaignID,
		"state":      models.StateAnswered,
		"outcome":    models.OutcomeUnresolved,
	}
	return r.findMany(ctx, filter)
}

func (r *ParticipantRepository) findMany(ctx context.Context, filter bson.M) ([]*models.ParticipantRecord, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.ParticipantRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.ParticipantRecord{}
	}
	return records, nil
}

// MarkAnnounced stamps the announcement time and invite message reference
func (r *ParticipantRepository) MarkAnnounced(ctx context.Context, id primitive.ObjectID, at time.Time, messageRef string) error {
	update := bson.M{"$set": bson.M{
		"announcedAt": at,
		"messageRef":  messageRef,
		"updatedAt":   time.Now(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// Engage moves an Invited record to Engaged and assigns its content item
func (r *ParticipantRepository) Engage(ctx context.Context, id primitive.ObjectID, contentID string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "state": models.StateInvited}
	update := bson.M{"$set": bson.M{
		"state":             models.StateEngaged,
		"assignedContentId": contentID,
		"engagedAt":         at,
		"updatedAt":         time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// SubmitAnswer records the single answer of an Engaged record. The filter
// also requires answerText to be unset, which makes the field write-once.
func (r *ParticipantRepository) SubmitAnswer(ctx context.Context, id primitive.ObjectID, answer string, correctCount int, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"state":      models.StateEngaged,
		"answerText": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"state":        models.StateAnswered,
		"answerText":   answer,
		"correctCount": correctCount,
		"answeredAt":   at,
		"updatedAt":    time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Resolve moves an Answered record to Resolved with an operator outcome
func (r *ParticipantRepository) Resolve(ctx context.Context, id primitive.ObjectID, outcome models.Outcome) (bool, error) {
	if outcome != models.OutcomeApproved && outcome != models.OutcomeDenied {
		return false, fmt.Errorf("invalid resolution outcome %q", outcome)
	}
	filter := bson.M{
		"_id":     id,
		"state":   models.StateAnswered,
		"outcome": models.OutcomeUnresolved,
	}
	update := bson.M{"$set": bson.M{
		"state":     models.StateResolved,
		"outcome":   outcome,
		"updatedAt": time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ResolveTimeout expires an Engaged record. Records that already left
// Engaged are untouched, so a timer racing an answer is harmless.
func (r *ParticipantRepository) ResolveTimeout(ctx context.Context, id primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": id, "state": models.StateEngaged}
	update := bson.M{"$set": bson.M{
		"state":     models.StateResolved,
		"outcome":   models.OutcomeTimedOut,
		"updatedAt": time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ExpireNonParticipants resolves all still-Invited records of an instance as
// TimedOut, recording non-participation when the instance closes
func (r *ParticipantRepository) ExpireNonParticipants(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	filter := bson.M{"campaignId": campaignID, "state": models.StateInvited}
	update := bson.M{"$set": bson.M{
		"state":     models.StateResolved,
		"outcome":   models.OutcomeTimedOut,
		"updatedAt": time.Now(),
	}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetTicketNumber assigns a ticket number to an approved record. The filter
// requires the field to be absent, so assignment happens at most once.
func (r *ParticipantRepository) SetTicketNumber(ctx context.Context, id primitive.ObjectID, ticketNumber int) (bool, error) {
	filter := bson.M{
		"_id":          id,
		"outcome":      models.OutcomeApproved,
		"ticketNumber": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"ticketNumber": ticketNumber,
		"updatedAt":    time.Now(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ClearTicketNumber removes an assigned ticket (explicit operator action)
func (r *ParticipantRepository) ClearTicketNumber(ctx context.Context, id primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": id, "ticketNumber": bson.M{"$exists": true}}
	update := bson.M{
		"$unset": bson.M{"ticketNumber": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MaxTicketNumber returns the highest ticket number assigned in a sequence
// scope, recomputed from storage so restarts cannot regress the sequence
func (r *ParticipantRepository) MaxTicketNumber(ctx context.Context, sequenceScope string) (int, bool, error) {
	filter := bson.M{
		"sequenceScope": sequenceScope,
		"ticketNumber":  bson.M{"$exists": true},
	}
	opts := options.FindOne().SetSort(bson.M{"ticketNumber": -1})
	var record models.ParticipantRecord
	err := r.collection.FindOne(ctx, filter, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return record.TicketNumber, true, nil
}

// FindDuplicateTickets scans all scopes for ticket numbers held more than once
func (r *ParticipantRepository) FindDuplicateTickets(ctx context.Context) ([]models.DuplicateTicket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ticketNumber": bson.M{"$exists": true}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"sequenceScope": "$sequenceScope", "ticketNumber": "$ticketNumber"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"sequenceScope": "$_id.sequenceScope",
			"ticketNumber":  "$_id.ticketNumber",
			"count":         1,
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to run duplicate ticket scan: %w", err)
	}
	defer cursor.Close(ctx)

	var duplicates []models.DuplicateTicket
	if err := cursor.All(ctx, &duplicates); err != nil {
		return nil, fmt.Errorf("failed to decode duplicate tickets: %w", err)
	}
	if duplicates == nil {
		duplicates = []models.DuplicateTicket{}
	}
	return duplicates, nil
}

// ResetForReopen returns all participants of an instance to Invited, clearing
// content, answer and outcome. Assigned ticket numbers are never touched.
func (r *ParticipantRepository) ResetForReopen(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	update := bson.M{
		"$set": bson.M{
			"state":     models.StateInvited,
			"outcome":   models.OutcomeUnresolved,
			"updatedAt": time.Now(),
		},
		"$unset": bson.M{
			"assignedContentId": "",
			"answerText":        "",
			"correctCount":      "",
			"engagedAt":         "",
			"answeredAt":        "",
		},
	}
	res, err := r.collection.UpdateMany(ctx, bson.M{"campaignId": campaignID}, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Stats summarises attempt states and outcomes for one campaign instance
func (r *ParticipantRepository) Stats(ctx context.Context, campaignID primitive.ObjectID) (*models.ParticipantStats, error) {
	stats := &models.ParticipantStats{}
	counts := []struct {
		dst    *int64
		filter bson.M
	}{
		{&stats.Total, bson.M{"campaignId": campaignID}},
		{&stats.Invited, bson.M{"campaignId": campaignID, "state": models.StateInvited}},
		{&stats.Engaged, bson.M{"campaignId": campaignID, "state": models.StateEngaged}},
		{&stats.Answered, bson.M{"campaignId": campaignID, "state": models.StateAnswered}},
		{&stats.Approved, bson.M{"campaignId": campaignID, "outcome": models.OutcomeApproved}},
		{&stats.Denied, bson.M{"campaignId": campaignID, "outcome": models.OutcomeDenied}},
		{&stats.TimedOut, bson.M{"campaignId": campaignID, "outcome": models.OutcomeTimedOut}},
		{&stats.Unresolved, bson.M{"campaignId": campaignID, "outcome": models.OutcomeUnresolved}},
	}
	for _, c := range counts {
		n, err := r.collection.CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return stats, nil
}
