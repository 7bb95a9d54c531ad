package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func TestMessages_SendToRoom(t *testing.T) {
	req := require.New(t)
	srv, d := newTestServer(t)
	alice, bob, carol := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	room := &model.Room{ID: primitive.NewObjectID(), Name: "general", Creator: alice, Members: []primitive.ObjectID{alice, bob, carol}}

	a := NewConn("a1", Identity{ID: alice.Hex(), Username: "alice"}, nil, 8)
	b := testConn("b1", bob.Hex())
	online(srv, a, b)
	_, _ = srv.rooms.Join(a, room.ID.Hex())
	_, _ = srv.rooms.Join(b, room.ID.Hex())

	var created *model.Message
	d.rooms.EXPECT().AuthorizeRoom(gomock.Any(), alice.Hex(), room.ID.Hex()).Return(room, nil)
	d.messages.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *model.Message) error {
		m.ID = primitive.NewObjectID()
		created = m
		return nil
	})
	d.notifications.EXPECT().CreateNotifications(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ns []*model.Notification) error {
		req.Len(ns, 2)
		for _, n := range ns {
			req.NotEqual(alice, n.Recipient)
			req.Equal("New message in general", n.Content)
			req.Equal(model.NotificationMessage, n.Type)
			req.Equal(created.ID, n.RelatedTo.ID)
		}
		return nil
	})
	// carol is offline: only bob gets a pushed count
	d.notifications.EXPECT().CountUnread(gomock.Any(), bob.Hex()).Return(int64(1), nil)

	send(srv, a, fmt.Sprintf(`{"event":"message:send","data":{"roomId":%q,"content":"hello"}}`, room.ID.Hex()))

	req.NotNil(created)
	req.True(created.HasReader(alice.Hex()))
	req.Equal(room.ID, *created.Room)
	req.False(created.IsPrivate)

	evs := drain(t, b)
	req.Equal([]string{EventMessageNew, EventNotificationUnread}, eventNames(evs))
	view := decodeData[MessageView](t, evs[0])
	req.Equal("hello", view.Content)
	req.Equal(UserBrief{ID: alice.Hex(), Username: "alice"}, view.Sender)
	req.Equal([]string{EventMessageNew}, eventNames(drain(t, a)))
}

func TestMessages_SendPrivate(t *testing.T) {
	req := require.New(t)
	srv, d := newTestServer(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	a1, a2 := NewConn("a1", Identity{ID: alice.Hex(), Username: "alice"}, nil, 8), testConn("a2", alice.Hex())
	b := testConn("b1", bob.Hex())
	online(srv, a1, a2, b)

	d.users.EXPECT().FindUser(gomock.Any(), bob.Hex()).Return(&model.User{ID: bob, Username: "bob"}, nil)
	d.messages.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil)
	d.notifications.EXPECT().CreateNotifications(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ns []*model.Notification) error {
		req.Len(ns, 1)
		req.Equal(bob, ns[0].Recipient)
		req.Equal("New message from alice", ns[0].Content)
		return nil
	})
	d.notifications.EXPECT().CountUnread(gomock.Any(), bob.Hex()).Return(int64(4), nil)

	send(srv, a1, fmt.Sprintf(`{"event":"message:send","data":{"recipientId":%q,"content":"psst"}}`, bob.Hex()))

	req.Equal([]string{EventMessageNew, EventNotificationUnread}, eventNames(drain(t, b)))
	// every connection of the sender sees its own message once
	req.Equal([]string{EventMessageNew}, eventNames(drain(t, a1)))
	req.Equal([]string{EventMessageNew}, eventNames(drain(t, a2)))
}

func TestMessages_SendPrivateUnknownRecipient(t *testing.T) {
	srv, d := newTestServer(t)
	a := testConn("a1", primitive.NewObjectID().Hex())
	online(srv, a)
	d.users.EXPECT().FindUser(gomock.Any(), "nobody").Return(nil, errs.ErrRecordNotFound.WrapMsg("user"))

	send(srv, a, `{"event":"message:send","data":{"recipientId":"nobody","content":"hi"}}`)
	require.Equal(t, "Recipient not found.", errorMessage(t, drain(t, a)))
}

func TestMessages_NotificationFailureDoesNotFailSend(t *testing.T) {
	srv, d := newTestServer(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	a := testConn("a1", alice.Hex())
	online(srv, a)

	d.users.EXPECT().FindUser(gomock.Any(), bob.Hex()).Return(&model.User{ID: bob}, nil)
	d.messages.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil)
	d.notifications.EXPECT().CreateNotifications(gomock.Any(), gomock.Any()).Return(errs.ErrTransient.Wrap())

	send(srv, a, fmt.Sprintf(`{"event":"message:send","data":{"recipientId":%q,"content":"hi"}}`, bob.Hex()))
	require.Equal(t, []string{EventMessageNew}, eventNames(drain(t, a)))
}

func TestMessages_History(t *testing.T) {
	req := require.New(t)
	srv, d := newTestServer(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	roomID := primitive.NewObjectID()
	a := NewConn("a1", Identity{ID: alice.Hex(), Username: "alice"}, nil, 8)
	other := testConn("x1", "someone")
	online(srv, a, other)
	_, _ = srv.rooms.Join(other, roomID.Hex())

	before := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	list := []*model.Message{
		{ID: primitive.NewObjectID(), Sender: bob, Room: &roomID, Content: "first"},
		{ID: primitive.NewObjectID(), Sender: alice, Room: &roomID, Content: "second"},
		{ID: primitive.NewObjectID(), Sender: bob, Room: &roomID, Content: "third"},
	}
	d.rooms.EXPECT().AuthorizeRoom(gomock.Any(), alice.Hex(), roomID.Hex()).Return(&model.Room{ID: roomID}, nil)
	d.messages.EXPECT().ListRoomMessages(gomock.Any(), roomID.Hex(), before, 20).Return(list, nil)
	// bob is looked up once for two messages
	d.users.EXPECT().FindUser(gomock.Any(), bob.Hex()).Return(&model.User{ID: bob, Username: "bob", Avatar: "b.png"}, nil)

	send(srv, a, fmt.Sprintf(`{"event":"message:history","data":{"roomId":%q,"before":"2024-05-01T12:00:00Z","limit":20}}`, roomID.Hex()))

	evs := drain(t, a)
	req.Equal([]string{EventMessageHistory}, eventNames(evs))
	page := decodeData[HistoryPayload](t, evs[0])
	req.Equal(roomID.Hex(), page.RoomID)
	req.Len(page.Messages, 3)
	req.Equal("first", page.Messages[0].Content)
	req.Equal(UserBrief{ID: bob.Hex(), Username: "bob", Avatar: "b.png"}, page.Messages[0].Sender)
	req.Equal(UserBrief{ID: alice.Hex(), Username: "alice"}, page.Messages[1].Sender)
	// history is a reply, never fanned out
	req.Empty(drain(t, other))
}

func TestMessages_PrivateHistoryUnknownUser(t *testing.T) {
	srv, d := newTestServer(t)
	a := testConn("a1", "alice")
	online(srv, a)
	d.users.EXPECT().FindUser(gomock.Any(), "ghost").Return(nil, errs.ErrRecordNotFound.Wrap())

	send(srv, a, `{"event":"message:history","data":{"userId":"ghost"}}`)
	require.Equal(t, "User not found.", errorMessage(t, drain(t, a)))
}
