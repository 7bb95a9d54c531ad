package chat

import (
	"context"
	"errors"
	"time"

	"PPChat/module/chat/contract"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Messages handles typing indicators, message creation and history.
type Messages struct {
	rooms         contract.RoomStore
	messages      contract.MessageStore
	users         contract.UserStore
	notifications *Notifications
	subs          *Rooms
	fanout        *Fanout
	log           *zap.Logger
}

type MessagesDeps struct {
	RoomStore     contract.RoomStore
	MessageStore  contract.MessageStore
	UserStore     contract.UserStore
	Notifications *Notifications
	Subscriptions *Rooms
	Fanout        *Fanout
	Log           *zap.Logger
}

func NewMessages(d MessagesDeps) *Messages {
	return &Messages{
		rooms:         d.RoomStore,
		messages:      d.MessageStore,
		users:         d.UserStore,
		notifications: d.Notifications,
		subs:          d.Subscriptions,
		fanout:        d.Fanout,
		log:           d.Log,
	}
}

// RoomTyping relays the indicator to the other subscribers of the room.
// A connection that has not joined the room is ignored.
func (m *Messages) RoomTyping(c *Conn, roomID string, isTyping bool) {
	if !m.subs.IsSubscribed(c, roomID) {
		m.log.Debug("typing outside room", zap.String("conn", c.ID()), zap.String("room", roomID))
		return
	}
	m.fanout.Dispatch(ToRoom{RoomID: roomID, Excluding: c}, Event{
		Name: EventRoomUserTyping,
		Data: RoomTypingPayload{RoomID: roomID, UserID: c.UserID(), Username: c.User().Username, IsTyping: isTyping},
	})
}

// PrivateTyping relays the indicator to every connection of the recipient.
func (m *Messages) PrivateTyping(c *Conn, recipientID string, isTyping bool) {
	m.fanout.Dispatch(ToUser{UserID: recipientID}, Event{
		Name: EventMessageUserTyping,
		Data: PrivateTypingPayload{UserID: c.UserID(), Username: c.User().Username, IsTyping: isTyping},
	})
}

// Send persists a room or private message, routes message:new and creates
// notifications for everyone else involved.
func (m *Messages) Send(ctx context.Context, caller Identity, cmd SendMessage) (*model.Message, error) {
	senderOID, err := primitive.ObjectIDFromHex(caller.ID)
	if err != nil {
		return nil, errs.ErrUnauthenticated.WrapMsg("sender id", "user", caller.ID)
	}
	msg := &model.Message{
		Sender:  senderOID,
		Content: cmd.Content,
		// the sender has read their own message
		ReadBy: []model.ReadMarker{{User: senderOID, ReadAt: time.Now().UTC().Truncate(time.Millisecond)}},
	}

	if cmd.RoomID != "" {
		err = m.sendToRoom(ctx, caller, cmd.RoomID, msg)
	} else {
		err = m.sendPrivate(ctx, caller, cmd.RecipientID, msg)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (m *Messages) sendToRoom(ctx context.Context, caller Identity, roomID string, msg *model.Message) error {
	room, err := m.rooms.AuthorizeRoom(ctx, caller.ID, roomID)
	if err != nil {
		return err
	}
	msg.Room = &room.ID
	if err := m.messages.CreateMessage(ctx, msg); err != nil {
		return err
	}
	m.fanout.Dispatch(ToRoom{RoomID: roomID}, Event{Name: EventMessageNew, Data: viewOf(msg, briefOf(caller))})

	recipients := lo.Uniq(lo.FilterMap(append([]primitive.ObjectID{room.Creator}, room.Members...),
		func(id primitive.ObjectID, _ int) (string, bool) {
			return id.Hex(), !id.IsZero() && id.Hex() != caller.ID
		}))
	m.notify(ctx, caller, msg, recipients, "New message in "+room.Name)
	return nil
}

func (m *Messages) sendPrivate(ctx context.Context, caller Identity, recipientID string, msg *model.Message) error {
	recipient, err := m.users.FindUser(ctx, recipientID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errs.ErrRecordNotFound.Reason("Recipient not found.", err)
		}
		return err
	}
	msg.Recipient = &recipient.ID
	msg.IsPrivate = true
	if err := m.messages.CreateMessage(ctx, msg); err != nil {
		return err
	}

	ev := Event{Name: EventMessageNew, Data: viewOf(msg, briefOf(caller))}
	m.fanout.Dispatch(ToUser{UserID: recipient.ID.Hex()}, ev)
	if recipient.ID.Hex() != caller.ID {
		m.fanout.Dispatch(ToUser{UserID: caller.ID}, ev)
		m.notify(ctx, caller, msg, []string{recipient.ID.Hex()}, "New message from "+caller.Username)
	}
	return nil
}

// notify creates message notifications and pushes fresh unread counts. The
// message is already delivered, so failures here are logged only.
func (m *Messages) notify(ctx context.Context, caller Identity, msg *model.Message, recipients []string, content string) {
	if len(recipients) == 0 {
		return
	}
	sender := msg.Sender
	ns := lo.FilterMap(recipients, func(id string, _ int) (*model.Notification, bool) {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, false
		}
		return &model.Notification{
			Recipient: oid,
			Sender:    &sender,
			Type:      model.NotificationMessage,
			Content:   content,
			RelatedTo: &model.RelatedTo{Model: model.RelatedMessage, ID: msg.ID},
		}, true
	})
	if err := m.notifications.Create(ctx, ns); err != nil {
		m.log.Warn("create notifications failed",
			zap.String("message", msg.ID.Hex()), zap.String("sender", caller.ID), zap.Error(err))
		return
	}
	for _, id := range recipients {
		if err := m.notifications.PushUnreadCount(ctx, id); err != nil {
			m.log.Debug("push unread count failed", zap.String("user", id), zap.Error(err))
		}
	}
}

// History returns one page of room or private history, oldest first.
func (m *Messages) History(ctx context.Context, caller Identity, cmd LoadHistory) (HistoryPayload, error) {
	var (
		list []*model.Message
		err  error
		out  = HistoryPayload{RoomID: cmd.RoomID, UserID: cmd.UserID}
	)
	if cmd.RoomID != "" {
		if _, err = m.rooms.AuthorizeRoom(ctx, caller.ID, cmd.RoomID); err != nil {
			return out, err
		}
		list, err = m.messages.ListRoomMessages(ctx, cmd.RoomID, cmd.Before, cmd.Limit)
	} else {
		if _, err = m.users.FindUser(ctx, cmd.UserID); err != nil {
			if errors.Is(err, errs.ErrRecordNotFound) {
				return out, errs.ErrRecordNotFound.Reason("User not found.", err)
			}
			return out, err
		}
		list, err = m.messages.ListPrivateMessages(ctx, caller.ID, cmd.UserID, cmd.Before, cmd.Limit)
	}
	if err != nil {
		return out, err
	}

	briefs := m.senderBriefs(ctx, caller, list)
	out.Messages = lo.Map(list, func(msg *model.Message, _ int) MessageView {
		return viewOf(msg, briefs[msg.SenderID()])
	})
	return out, nil
}

// senderBriefs looks every distinct sender up once; unknown senders keep
// only their id.
func (m *Messages) senderBriefs(ctx context.Context, caller Identity, list []*model.Message) map[string]UserBrief {
	ids := lo.Uniq(lo.Map(list, func(msg *model.Message, _ int) string { return msg.SenderID() }))
	briefs := make(map[string]UserBrief, len(ids))
	for _, id := range ids {
		if id == caller.ID {
			briefs[id] = briefOf(caller)
			continue
		}
		u, err := m.users.FindUser(ctx, id)
		if err != nil {
			m.log.Debug("history sender lookup failed", zap.String("user", id), zap.Error(err))
			briefs[id] = UserBrief{ID: id}
			continue
		}
		briefs[id] = UserBrief{ID: id, Username: u.Username, Avatar: u.Avatar}
	}
	return briefs
}
