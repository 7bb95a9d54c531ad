package chat

import (
	"encoding/json"
	"time"

	"PPChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outbound event names.
const (
	EventStatus              = "status"
	EventRoomUserJoined      = "room:userJoined"
	EventRoomUserLeft        = "room:userLeft"
	EventRoomUserTyping      = "room:userTyping"
	EventMessageUserTyping   = "message:userTyping"
	EventMessageReadReceipt  = "message:readReceipt"
	EventMessageNew          = "message:new"
	EventMessageHistory      = "message:history"
	EventNotificationUpdated = "notification:updated"
	EventNotificationUnread  = "notification:unreadCount"
	EventError               = "error"
)

// Event is one outbound frame: {"event": Name, "data": Data}.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type StatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type UserBrief struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

func briefOf(id Identity) UserBrief {
	return UserBrief{ID: id.ID, Username: id.Username, Avatar: id.Avatar}
}

type RoomUserJoinedPayload struct {
	RoomID string    `json:"roomId"`
	User   UserBrief `json:"user"`
}

type RoomUserLeftPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type RoomTypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type PrivateTypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ReadReceiptPayload struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

type NotificationUpdatedPayload struct {
	NotificationID string `json:"notificationId"`
	IsRead         bool   `json:"isRead"`
}

type UnreadCountPayload struct {
	Count int64 `json:"count"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// MessageView is a message with its sender expanded, as clients render it.
type MessageView struct {
	ID          primitive.ObjectID  `json:"_id"`
	Sender      UserBrief           `json:"sender"`
	Content     string              `json:"content"`
	Room        *primitive.ObjectID `json:"room,omitempty"`
	Recipient   *primitive.ObjectID `json:"recipient,omitempty"`
	IsPrivate   bool                `json:"isPrivate"`
	Attachments []model.Attachment  `json:"attachments"`
	ReadBy      []model.ReadMarker  `json:"readBy"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func viewOf(m *model.Message, sender UserBrief) MessageView {
	return MessageView{
		ID:          m.ID,
		Sender:      sender,
		Content:     m.Content,
		Room:        m.Room,
		Recipient:   m.Recipient,
		IsPrivate:   m.IsPrivate,
		Attachments: m.Attachments,
		ReadBy:      m.ReadBy,
		CreatedAt:   m.CreatedAt,
	}
}

type HistoryPayload struct {
	RoomID   string        `json:"roomId,omitempty"`
	UserID   string        `json:"userId,omitempty"`
	Messages []MessageView `json:"messages"`
}
