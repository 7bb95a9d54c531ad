package chat

import (
	"context"

	"PPChat/module/chat/contract"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"go.uber.org/zap"
)

// Notifications answers unread-count queries and pushes count updates.
// Counts are always read from the store; nothing is cached here.
type Notifications struct {
	store    contract.NotificationStore
	registry *Registry
	fanout   *Fanout
	log      *zap.Logger
}

func NewNotifications(store contract.NotificationStore, registry *Registry, fanout *Fanout, log *zap.Logger) *Notifications {
	return &Notifications{store: store, registry: registry, fanout: fanout, log: log}
}

func (n *Notifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return n.store.CountUnread(ctx, userID)
}

func (n *Notifications) Create(ctx context.Context, ns []*model.Notification) error {
	return n.store.CreateNotifications(ctx, ns)
}

// MarkNotificationRead marks a notification owned by the caller as read and
// tells every connection of the caller.
func (n *Notifications) MarkNotificationRead(ctx context.Context, caller Identity, notificationID string) error {
	if notificationID == "" {
		return errs.ErrRecordNotFound.Reason("Notification not found.", nil)
	}
	nt, err := n.store.FindNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if nt.RecipientID() != caller.ID {
		return errs.ErrForbidden.Reason("Not authorized to mark this notification as read.", nil)
	}
	if err := n.store.MarkNotificationRead(ctx, notificationID); err != nil {
		return err
	}
	n.fanout.Dispatch(ToUser{UserID: caller.ID}, Event{
		Name: EventNotificationUpdated,
		Data: NotificationUpdatedPayload{NotificationID: notificationID, IsRead: true},
	})
	return nil
}

// PushUnreadCount sends the current count to every connection of userID.
// Offline users are skipped without touching the store.
func (n *Notifications) PushUnreadCount(ctx context.Context, userID string) error {
	if !n.registry.Online(userID) {
		return nil
	}
	count, err := n.store.CountUnread(ctx, userID)
	if err != nil {
		return err
	}
	n.fanout.Dispatch(ToUser{UserID: userID}, Event{
		Name: EventNotificationUnread,
		Data: UnreadCountPayload{Count: count},
	})
	return nil
}
