package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RoomTableName = "rooms"

// Room 聊天室。Members 是持久化的成员关系，与 websocket 订阅无关。
type Room struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Creator     primitive.ObjectID   `bson:"creator" json:"creator"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	IsPrivate   bool                 `bson:"isPrivate" json:"isPrivate"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (*Room) TableName() string { return RoomTableName }

func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m.Hex() == userID {
			return true
		}
	}
	return false
}

// CanAccess 公开房间任何人可进；私有房间仅创建者和成员。
func (r *Room) CanAccess(userID string) bool {
	return !r.IsPrivate || r.Creator.Hex() == userID || r.HasMember(userID)
}
