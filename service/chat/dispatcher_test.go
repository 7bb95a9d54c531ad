package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"PPChat/mocks"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type testDeps struct {
	resolver      *mocks.MockIdentityResolver
	rooms         *mocks.MockRoomStore
	messages      *mocks.MockMessageStore
	notifications *mocks.MockNotificationStore
	users         *mocks.MockUserStore
}

func newTestServer(t *testing.T) (*Server, testDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := testDeps{
		resolver:      mocks.NewMockIdentityResolver(ctrl),
		rooms:         mocks.NewMockRoomStore(ctrl),
		messages:      mocks.NewMockMessageStore(ctrl),
		notifications: mocks.NewMockNotificationStore(ctrl),
		users:         mocks.NewMockUserStore(ctrl),
	}
	srv := NewServer(Options{NodeID: "gw-test"}, Deps{
		Resolver:      d.resolver,
		Rooms:         d.rooms,
		Messages:      d.messages,
		Notifications: d.notifications,
		Users:         d.users,
		Log:           zap.NewNop(),
	})
	return srv, d
}

// online registers c directly, skipping presence persistence.
func online(srv *Server, conns ...*Conn) {
	for _, c := range conns {
		srv.registry.Register(c)
	}
}

func send(srv *Server, c *Conn, frame string) {
	newSession(srv, c).Handle(context.Background(), []byte(frame))
}

func errorMessage(t *testing.T, evs []wireEvent) string {
	t.Helper()
	require.Len(t, evs, 1)
	require.Equal(t, EventError, evs[0].Name)
	return decodeData[ErrorPayload](t, evs[0]).Message
}

func TestSession_JoinPrivateRoomDenied(t *testing.T) {
	srv, d := newTestServer(t)
	member, outsider := testConn("m1", "member"), testConn("x1", "outsider")
	online(srv, member, outsider)
	_, _ = srv.rooms.Join(member, "r1")

	d.rooms.EXPECT().AuthorizeRoom(gomock.Any(), "outsider", "r1").
		Return(nil, errs.ErrForbidden.Reason("Access denied to this room.", nil))

	send(srv, outsider, `{"event":"room:join","data":{"roomId":"r1"}}`)

	require.Equal(t, "Access denied to this room.", errorMessage(t, drain(t, outsider)))
	require.Empty(t, drain(t, member))
	subs := collect(srv.rooms.SubscribersOf("r1"))
	require.Len(t, subs, 1)
	require.Contains(t, subs, "m1")
}

func TestSession_JoinAndLeaveAnnounceToOthers(t *testing.T) {
	req := require.New(t)
	srv, d := newTestServer(t)
	a, b := testConn("a1", "alice"), testConn("b1", "bob")
	online(srv, a, b)
	_, _ = srv.rooms.Join(a, "r1")

	d.rooms.EXPECT().AuthorizeRoom(gomock.Any(), "bob", "r1").Return(&model.Room{Name: "general"}, nil).Times(2)

	send(srv, b, `{"event":"room:join","data":{"roomId":"r1"}}`)
	evs := drain(t, a)
	req.Equal([]string{EventRoomUserJoined}, eventNames(evs))
	joined := decodeData[RoomUserJoinedPayload](t, evs[0])
	req.Equal("r1", joined.RoomID)
	req.Equal(UserBrief{ID: "bob", Username: "name-bob"}, joined.User)
	req.Empty(drain(t, b))

	// already subscribed: nothing changes, nothing announced
	send(srv, b, `{"event":"room:join","data":{"roomId":"r1"}}`)
	req.Empty(drain(t, a))

	send(srv, b, `{"event":"room:leave","data":{"roomId":"r1"}}`)
	evs = drain(t, a)
	req.Equal([]string{EventRoomUserLeft}, eventNames(evs))
	req.Equal(RoomUserLeftPayload{RoomID: "r1", UserID: "bob"}, decodeData[RoomUserLeftPayload](t, evs[0]))
	req.False(srv.rooms.IsSubscribed(b, "r1"))

	send(srv, b, `{"event":"room:leave","data":{"roomId":"r1"}}`)
	req.Empty(drain(t, a))
	req.Empty(drain(t, b))
}

func TestSession_StoreFailureUsesFallbackText(t *testing.T) {
	srv, d := newTestServer(t)
	c := testConn("a1", "alice")
	online(srv, c)
	d.rooms.EXPECT().AuthorizeRoom(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errs.ErrTransient.Reason("service temporarily unavailable", errors.New("i/o timeout")))

	send(srv, c, `{"event":"room:join","data":{"roomId":"r1"}}`)

	require.Equal(t, "Failed to join room.", errorMessage(t, drain(t, c)))
	require.False(t, srv.rooms.IsSubscribed(c, "r1"))
}

func TestSession_MalformedFrames(t *testing.T) {
	srv, _ := newTestServer(t)
	c := testConn("a1", "alice")
	online(srv, c)

	cases := []struct{ frame, want string }{
		{`not json`, "Invalid message format."},
		{`{"data":{}}`, "Invalid message format."},
		{`{"event":"room:dance","data":{}}`, "Unknown event."},
		{`{"event":"room:join","data":{}}`, "roomId is required."},
		{`{"event":"message:send","data":{"content":"hi"}}`, "roomId is required."},
		{`{"event":"message:send","data":{"roomId":"r1"}}`, "content is required."},
	}
	for _, tc := range cases {
		send(srv, c, tc.frame)
		require.Equal(t, tc.want, errorMessage(t, drain(t, c)), tc.frame)
	}
}

func TestSession_Typing(t *testing.T) {
	srv, _ := newTestServer(t)
	a, b, b2 := testConn("a1", "alice"), testConn("b1", "bob"), testConn("b2", "bob")
	online(srv, a, b, b2)
	_, _ = srv.rooms.Join(a, "r1")
	_, _ = srv.rooms.Join(b, "r1")

	send(srv, a, `{"event":"room:typing","data":{"roomId":"r1","isTyping":true}}`)
	require.Empty(t, drain(t, a))
	evs := drain(t, b)
	require.Len(t, evs, 1)
	require.Equal(t, RoomTypingPayload{RoomID: "r1", UserID: "alice", Username: "name-alice", IsTyping: true},
		decodeData[RoomTypingPayload](t, evs[0]))

	send(srv, a, `{"event":"message:typing","data":{"recipientId":"bob","isTyping":false}}`)
	for _, c := range []*Conn{b, b2} {
		evs := drain(t, c)
		require.Equal(t, []string{EventMessageUserTyping}, eventNames(evs))
		require.Equal(t, PrivateTypingPayload{UserID: "alice", Username: "name-alice"},
			decodeData[PrivateTypingPayload](t, evs[0]))
	}
}

func TestSession_RoomTypingRequiresSubscription(t *testing.T) {
	srv, _ := newTestServer(t)
	member, outsider := testConn("m1", "bob"), testConn("x1", "mallory")
	online(srv, member, outsider)
	_, _ = srv.rooms.Join(member, "private-room")

	send(srv, outsider, `{"event":"room:typing","data":{"roomId":"private-room","isTyping":true}}`)
	require.Empty(t, drain(t, member))
	require.Empty(t, drain(t, outsider))
}

func TestSession_NotificationRead(t *testing.T) {
	srv, d := newTestServer(t)
	owner := primitive.NewObjectID()
	c1, c2 := testConn("c1", owner.Hex()), testConn("c2", owner.Hex())
	other := testConn("x1", "mallory")
	online(srv, c1, c2, other)
	nt := &model.Notification{ID: primitive.NewObjectID(), Recipient: owner}

	d.notifications.EXPECT().FindNotification(gomock.Any(), nt.ID.Hex()).Return(nt, nil).Times(2)
	d.notifications.EXPECT().MarkNotificationRead(gomock.Any(), nt.ID.Hex()).Return(nil)

	send(srv, other, fmt.Sprintf(`{"event":"notification:read","data":{"notificationId":%q}}`, nt.ID.Hex()))
	require.Equal(t, "Not authorized to mark this notification as read.", errorMessage(t, drain(t, other)))

	send(srv, c1, fmt.Sprintf(`{"event":"notification:read","data":{"notificationId":%q}}`, nt.ID.Hex()))
	for _, c := range []*Conn{c1, c2} {
		evs := drain(t, c)
		require.Equal(t, []string{EventNotificationUpdated}, eventNames(evs))
		require.Equal(t, NotificationUpdatedPayload{NotificationID: nt.ID.Hex(), IsRead: true},
			decodeData[NotificationUpdatedPayload](t, evs[0]))
	}
}

func TestSession_UnreadCount(t *testing.T) {
	srv, d := newTestServer(t)
	c := testConn("c1", "alice")
	online(srv, c)

	d.notifications.EXPECT().CountUnread(gomock.Any(), "alice").Return(int64(3), nil)
	d.notifications.EXPECT().CountUnread(gomock.Any(), "alice").Return(int64(0), errors.New("boom"))

	send(srv, c, `{"event":"notification:getUnreadCount"}`)
	evs := drain(t, c)
	require.Equal(t, []string{EventNotificationUnread}, eventNames(evs))
	require.Equal(t, int64(3), decodeData[UnreadCountPayload](t, evs[0]).Count)

	send(srv, c, `{"event":"notification:getUnreadCount","data":{}}`)
	require.Equal(t, "Failed to get unread notifications count.", errorMessage(t, drain(t, c)))
}

func TestSession_MarkReadForbidden(t *testing.T) {
	srv, _ := newTestServer(t)
	c := testConn("c1", "alice")
	online(srv, c)

	send(srv, c, `{"event":"message:read","data":{"messageId":"m1","userId":"bob"}}`)
	require.Equal(t, "Not authorized to mark this message as read.", errorMessage(t, drain(t, c)))
}

func TestSession_PanicIsReportedToCaller(t *testing.T) {
	srv, d := newTestServer(t)
	c := testConn("c1", "alice")
	online(srv, c)
	d.notifications.EXPECT().CountUnread(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string) (int64, error) { panic("nil map") })

	send(srv, c, `{"event":"notification:getUnreadCount"}`)
	require.Equal(t, "Failed to get unread notifications count.", errorMessage(t, drain(t, c)))
}
