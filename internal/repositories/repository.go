package repositories

import (
	"context"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignRepository defines the interface for campaign instance data operations
type CampaignRepository interface {
	Create(ctx context.Context, instance *models.CampaignInstance) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.CampaignInstance, error)
	FindByKindAndKey(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignInstance, error)
	FindAll(ctx context.Context) ([]*models.CampaignInstance, error)
	Update(ctx context.Context, instance *models.CampaignInstance) error
	// MarkStopped flips IsActive to false and stamps StoppedAt once.
	// Returns false when the instance was already stopped.
	MarkStopped(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// Reactivate flips IsActive back to true and clears StoppedAt
	Reactivate(ctx context.Context, id primitive.ObjectID) error
	NextSequenceNumber(ctx context.Context, kind models.CampaignKind) (int, error)
}

// ParticipantRepository defines the interface for participant record data
// operations. The conditional mutators implement compare-and-set transitions:
// the filter carries the expected current state and the boolean result
// reports whether this caller won the transition.
type ParticipantRepository interface {
	Create(ctx context.Context, record *models.ParticipantRecord) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ParticipantRecord, error)
	FindBySubscriberAndCampaign(ctx context.Context, subscriberID, campaignID primitive.ObjectID) (*models.ParticipantRecord, error)
	FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]*models.ParticipantRecord, error)
	FindByCampaignAndState(ctx context.Context, campaignID primitive.ObjectID, state models.AttemptState) ([]*models.ParticipantRecord, error)
	// FindOutstanding returns answered-but-unresolved records for an instance
	FindOutstanding(ctx context.Context, campaignID primitive.ObjectID) ([]*models.ParticipantRecord, error)
	MarkAnnounced(ctx context.Context, id primitive.ObjectID, at time.Time, messageRef string) error
	Engage(ctx context.Context, id primitive.ObjectID, contentID string, at time.Time) (bool, error)
	SubmitAnswer(ctx context.Context, id primitive.ObjectID, answer string, correctCount int, at time.Time) (bool, error)
	// Resolve moves an Answered record to Resolved with the given outcome
	Resolve(ctx context.Context, id primitive.ObjectID, outcome models.Outcome) (bool, error)
	// ResolveTimeout moves an Engaged record to Resolved/TimedOut; a no-op
	// (false) when the record has already left Engaged
	ResolveTimeout(ctx context.Context, id primitive.ObjectID) (bool, error)
	// ExpireNonParticipants resolves every still-Invited record of an
	// instance as TimedOut, used when a close records non-participation
	ExpireNonParticipants(ctx context.Context, campaignID primitive.ObjectID) (int64, error)
	// SetTicketNumber assigns a ticket to an approved record at most once
	SetTicketNumber(ctx context.Context, id primitive.ObjectID, ticketNumber int) (bool, error)
	ClearTicketNumber(ctx context.Context, id primitive.ObjectID) (bool, error)
	// MaxTicketNumber returns the highest assigned ticket in a sequence
	// scope; ok is false when the scope has no tickets yet
	MaxTicketNumber(ctx context.Context, sequenceScope string) (int, bool, error)
	FindDuplicateTickets(ctx context.Context) ([]models.DuplicateTicket, error)
	// ResetForReopen returns every participant of an instance to Invited,
	// clearing content, answer and outcome but never assigned ticket numbers
	ResetForReopen(ctx context.Context, campaignID primitive.ObjectID) (int64, error)
	Stats(ctx context.Context, campaignID primitive.ObjectID) (*models.ParticipantStats, error)
}

// SubscriberRepository defines the interface for subscriber data operations
type SubscriberRepository interface {
	Create(ctx context.Context, subscriber *models.Subscriber) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Subscriber, error)
	FindByChatRef(ctx context.Context, chatRef string) (*models.Subscriber, error)
	FindSubscribed(ctx context.Context) ([]*models.Subscriber, error)
	Resubscribe(ctx context.Context, chatRef string, at time.Time) error
	Unsubscribe(ctx context.Context, chatRef string, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// DefinitionRepository defines the interface for campaign definition storage
type DefinitionRepository interface {
	Upsert(ctx context.Context, definition *models.CampaignDefinition) error
	FindByKindAndKey(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignDefinition, error)
	ListInstanceKeys(ctx context.Context, kind models.CampaignKind) ([]string, error)
	FindAll(ctx context.Context) ([]*models.CampaignDefinition, error)
}

// AdminUserRepository defines the interface for operator account data operations
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error)
}

// DeliveryLogRepository defines the interface for fan-out delivery logs
type DeliveryLogRepository interface {
	Create(ctx context.Context, log *models.DeliveryLog) error
	FindByCampaign(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.DeliveryLog, error)
}
