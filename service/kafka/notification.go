package kafka

import (
	"context"
	"encoding/json"

	"PPChat/tools/errs"
)

// NotificationEvent 由业务服务在创建通知后写入，网关据此推送最新未读数。
type NotificationEvent struct {
	RecipientID    string `json:"recipientId"`
	NotificationID string `json:"notificationId,omitempty"`
}

type UnreadPusher interface {
	PushUnreadCount(ctx context.Context, userID string) error
}

func NewNotificationHandler(p UnreadPusher) MessageHandler {
	return func(ctx context.Context, topic string, key, value []byte) error {
		var ev NotificationEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return errs.WrapMsg(err, "decode notification event", "topic", topic)
		}
		if ev.RecipientID == "" {
			ev.RecipientID = string(key)
		}
		if ev.RecipientID == "" {
			return errs.New("notification event without recipient", "topic", topic)
		}
		return p.PushUnreadCount(ctx, ev.RecipientID)
	}
}
