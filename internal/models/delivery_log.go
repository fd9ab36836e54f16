package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryLog records one fan-out send attempt and its classified result
type DeliveryLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SubscriberID primitive.ObjectID `bson:"subscriberId" json:"subscriberId"`
	CampaignID   primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	JobKind      JobKind            `bson:"jobKind,omitempty" json:"jobKind,omitempty"`
	Status       string             `bson:"status" json:"status"`
	MessageRef   string             `bson:"messageRef,omitempty" json:"messageRef,omitempty"`
	Error        string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
