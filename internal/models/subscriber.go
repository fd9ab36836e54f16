package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscriber represents one recipient on the messaging channel.
// ChatRef is the channel-side identifier used by the delivery adapter.
type Subscriber struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ChatRef        string             `bson:"chatRef" json:"chatRef"`
	DisplayName    string             `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Subscribed     bool               `bson:"subscribed" json:"subscribed"`
	SubscribedAt   time.Time          `bson:"subscribedAt,omitempty" json:"subscribedAt,omitempty"`
	UnsubscribedAt time.Time          `bson:"unsubscribedAt,omitempty" json:"unsubscribedAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
