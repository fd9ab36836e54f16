package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignKind identifies the kind of engagement campaign
type CampaignKind string

const (
	KindRaffle   CampaignKind = "RAFFLE"
	KindQuiz     CampaignKind = "QUIZ"
	KindDrawGame CampaignKind = "DRAW_GAME"
)

// ParseCampaignKind parses a kind string from a route or payload
func ParseCampaignKind(s string) (CampaignKind, error) {
	switch CampaignKind(s) {
	case KindRaffle, KindQuiz, KindDrawGame:
		return CampaignKind(s), nil
	}
	return "", fmt.Errorf("unknown campaign kind %q", s)
}

// JobKind identifies a scheduled job for a campaign instance
type JobKind string

const (
	JobAnnounce JobKind = "announce"
	JobRemind   JobKind = "remind"
	JobClose    JobKind = "close"
)

// ParseJobKind parses a job kind string from a route
func ParseJobKind(s string) (JobKind, error) {
	switch JobKind(s) {
	case JobAnnounce, JobRemind, JobClose:
		return JobKind(s), nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// CampaignInstance represents one dated/keyed occurrence of a campaign.
// Identity is (Kind, InstanceKey); InstanceKey is a date (2006-01-02) or a slug.
type CampaignInstance struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Kind           CampaignKind       `bson:"kind" json:"kind"`
	InstanceKey    string             `bson:"instanceKey" json:"instanceKey"`
	Title          string             `bson:"title" json:"title"`
	StartAt        time.Time          `bson:"startAt" json:"startAt"`
	SequenceNumber int                `bson:"sequenceNumber" json:"sequenceNumber"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	StoppedAt      time.Time          `bson:"stoppedAt,omitempty" json:"stoppedAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
