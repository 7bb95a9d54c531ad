//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../../../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"time"

	"PPChat/module/chat/model"
)

// Identity 已认证的连接所有者，握手时解析一次，连接存活期间不变。
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// RoomStore 返回 NotFound("Room not found.") / Forbidden("Access denied to this room.")
// 或其他存储错误。
type RoomStore interface {
	AuthorizeRoom(ctx context.Context, userID, roomID string) (*model.Room, error)
}

type MessageStore interface {
	FindMessage(ctx context.Context, messageID string) (*model.Message, error)
	// AppendReader reports whether this call added the marker.
	AppendReader(ctx context.Context, messageID, userID string, readAt time.Time) (bool, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListRoomMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]*model.Message, error)
	ListPrivateMessages(ctx context.Context, userA, userB string, before time.Time, limit int) ([]*model.Message, error)
}

type NotificationStore interface {
	FindNotification(ctx context.Context, notificationID string) (*model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
	CreateNotifications(ctx context.Context, ns []*model.Notification) error
}

type UserStore interface {
	FindUser(ctx context.Context, userID string) (*model.User, error)
	SetStatus(ctx context.Context, userID, status string, at time.Time) error
}

// PresenceMirror 可选：把在线状态镜像到共享缓存，供其他服务查询。
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID, nodeID string) error
	Touch(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// StatusPublisher 可选：把上下线事件发布到消息总线。
type StatusPublisher interface {
	PublishStatus(ctx context.Context, userID, status string, at time.Time) error
}
