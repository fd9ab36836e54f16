package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentItem is one question/prompt a campaign can issue to a participant
type ContentItem struct {
	ContentID     string   `bson:"contentId" json:"contentId"`
	Prompt        string   `bson:"prompt" json:"prompt"`
	Options       []string `bson:"options,omitempty" json:"options,omitempty"`
	CorrectOption int      `bson:"correctOption" json:"correctOption"`
}

// AssignedContent is the participant-facing view of a content item. It never
// carries the correct option; definitions with answer keys stay behind the
// operator surface.
type AssignedContent struct {
	ContentID string   `json:"contentId"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options,omitempty"`
}

// View returns the participant-facing projection of a content item
func (i ContentItem) View() *AssignedContent {
	return &AssignedContent{
		ContentID: i.ContentID,
		Prompt:    i.Prompt,
		Options:   i.Options,
	}
}

// CampaignDefinition is the stored source of campaign metadata, keyed by
// (Kind, InstanceKey). StartLocal is a campaign-local time string validated
// at create/edit time; the scheduler re-reads definitions on every
// rematerialization rather than caching them.
type CampaignDefinition struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Kind        CampaignKind       `bson:"kind" json:"kind"`
	InstanceKey string             `bson:"instanceKey" json:"instanceKey"`
	StartLocal  string             `bson:"startLocal" json:"startLocal"`
	Title       string             `bson:"title" json:"title"`
	Content     []ContentItem      `bson:"content" json:"content"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
