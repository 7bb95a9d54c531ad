package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTableName = "messages"

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

type Attachment struct {
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"originalname" json:"originalname"`
	MimeType     string `bson:"mimetype" json:"mimetype"`
	Path         string `bson:"path" json:"path"`
	Size         int64  `bson:"size" json:"size"`
}

// ReadMarker 已读标记；同一用户至多一条，只追加不删除。
type ReadMarker struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"readAt" json:"readAt"`
}

// Message 房间消息（Room 非空）或私聊消息（Recipient 非空，IsPrivate=true）。
type Message struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Sender      primitive.ObjectID  `bson:"sender" json:"sender"`
	Content     string              `bson:"content" json:"content"`
	Room        *primitive.ObjectID `bson:"room,omitempty" json:"room,omitempty"`
	Recipient   *primitive.ObjectID `bson:"recipient,omitempty" json:"recipient,omitempty"`
	IsPrivate   bool                `bson:"isPrivate" json:"isPrivate"`
	Attachments []Attachment        `bson:"attachments" json:"attachments"`
	ReadBy      []ReadMarker        `bson:"readBy" json:"readBy"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (*Message) TableName() string { return MessageTableName }

func (m *Message) SenderID() string { return m.Sender.Hex() }

func (m *Message) RoomID() string {
	if m.Room == nil {
		return ""
	}
	return m.Room.Hex()
}

func (m *Message) RecipientID() string {
	if m.Recipient == nil {
		return ""
	}
	return m.Recipient.Hex()
}

func (m *Message) HasReader(userID string) bool {
	for _, r := range m.ReadBy {
		if r.User.Hex() == userID {
			return true
		}
	}
	return false
}

// ClampHistoryLimit 分页大小：<=0 取默认值，超过上限截断。
func ClampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
