package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttemptState represents a participant's progress through a campaign instance
type AttemptState string

const (
	StateInvited  AttemptState = "INVITED"
	StateEngaged  AttemptState = "ENGAGED"
	StateAnswered AttemptState = "ANSWERED"
	StateResolved AttemptState = "RESOLVED"
)

// Outcome represents the final result of a resolved attempt
type Outcome string

const (
	OutcomeUnresolved Outcome = "UNRESOLVED"
	OutcomeApproved   Outcome = "APPROVED"
	OutcomeDenied     Outcome = "DENIED"
	OutcomeTimedOut   Outcome = "TIMED_OUT"
)

// ParticipantRecord tracks one subscriber's attempt in one campaign instance.
// Identity is (SubscriberID, CampaignID). AnswerText and TicketNumber are
// write-once; EngagedAt is the anchor for all answer-deadline math. A
// TicketNumber of zero means no ticket has been assigned.
type ParticipantRecord struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SubscriberID      primitive.ObjectID `bson:"subscriberId" json:"subscriberId"`
	CampaignID        primitive.ObjectID `bson:"campaignId" json:"campaignId"`
	State             AttemptState       `bson:"state" json:"state"`
	Outcome           Outcome            `bson:"outcome" json:"outcome"`
	AssignedContentID string             `bson:"assignedContentId,omitempty" json:"assignedContentId,omitempty"`
	AnswerText        string             `bson:"answerText,omitempty" json:"answerText,omitempty"`
	CorrectCount      int                `bson:"correctCount,omitempty" json:"correctCount,omitempty"`
	AnnouncedAt       time.Time          `bson:"announcedAt,omitempty" json:"announcedAt,omitempty"`
	EngagedAt         time.Time          `bson:"engagedAt,omitempty" json:"engagedAt,omitempty"`
	AnsweredAt        time.Time          `bson:"answeredAt,omitempty" json:"answeredAt,omitempty"`
	TicketNumber      int                `bson:"ticketNumber,omitempty" json:"ticketNumber,omitempty"`
	SequenceScope     string             `bson:"sequenceScope" json:"sequenceScope"`
	MessageRef        string             `bson:"messageRef,omitempty" json:"messageRef,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DuplicateTicket reports a ticket number held by more than one participant
// within a sequence scope. Produced by the duplicate audit.
type DuplicateTicket struct {
	SequenceScope string `bson:"sequenceScope" json:"sequenceScope"`
	TicketNumber  int    `bson:"ticketNumber" json:"ticketNumber"`
	Count         int    `bson:"count" json:"count"`
}

// ParticipantStats summarises attempt states and outcomes for one campaign instance
type ParticipantStats struct {
	Total      int64 `json:"total"`
	Invited    int64 `json:"invited"`
	Engaged    int64 `json:"engaged"`
	Answered   int64 `json:"answered"`
	Approved   int64 `json:"approved"`
	Denied     int64 `json:"denied"`
	TimedOut   int64 `json:"timedOut"`
	Unresolved int64 `json:"unresolved"`
}
