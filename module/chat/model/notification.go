package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const NotificationTableName = "notifications"

// Notification.Type
const (
	NotificationMessage    = "message"
	NotificationMention    = "mention"
	NotificationRoomInvite = "room_invite"
	NotificationSystem     = "system"
)

// RelatedTo.Model
const (
	RelatedMessage = "Message"
	RelatedRoom    = "Room"
	RelatedUser    = "User"
)

type RelatedTo struct {
	Model string             `bson:"model" json:"model"`
	ID    primitive.ObjectID `bson:"id" json:"id"`
}

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender    *primitive.ObjectID `bson:"sender,omitempty" json:"sender,omitempty"`
	Type      string              `bson:"type" json:"type"`
	Content   string              `bson:"content" json:"content"`
	RelatedTo *RelatedTo          `bson:"relatedTo,omitempty" json:"relatedTo,omitempty"`
	IsRead    bool                `bson:"isRead" json:"isRead"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (*Notification) TableName() string { return NotificationTableName }

func (n *Notification) RecipientID() string { return n.Recipient.Hex() }
