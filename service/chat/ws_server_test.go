package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func startGateway(t *testing.T, srv *Server) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	srv.RegisterRoutes(engine)
	hs := httptest.NewServer(engine)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, srv.Shutdown(ctx))
		hs.Close()
	})
	return "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)
	ws, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func write(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, raw))
}

// readUntil reads frames until one named event arrives; the skipped frames
// are returned as well.
func readUntil(t *testing.T, ws *websocket.Conn, event string) (wireEvent, []wireEvent) {
	t.Helper()
	var skipped []wireEvent
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err)
		var ev wireEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		if ev.Name == event {
			return ev, skipped
		}
		skipped = append(skipped, ev)
	}
}

func TestWS_RejectsBadToken(t *testing.T) {
	srv, d := newTestServer(t)
	d.resolver.EXPECT().Resolve(gomock.Any(), "bad").
		Return(Identity{}, errs.ErrUnauthenticated.Reason("Authentication error: Invalid token", nil))
	url := startGateway(t, srv)

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer bad")
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
	require.Equal(t, RegistryStats{}, srv.Registry().Stats())
}

func TestWS_RejectsForeignOrigin(t *testing.T) {
	srv, d := newTestServer(t)
	d.resolver.EXPECT().Resolve(gomock.Any(), "tok").Return(Identity{ID: "alice"}, nil)
	url := startGateway(t, srv)

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer tok")
	hdr.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

// Two users on live sockets: B receives A's private message, reads it twice,
// and A sees exactly one read receipt.
func TestWS_PrivateMessageAndReceipt(t *testing.T) {
	req := require.New(t)
	srv, d := newTestServer(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	idA := Identity{ID: alice.Hex(), Username: "alice"}
	idB := Identity{ID: bob.Hex(), Username: "bob"}

	d.resolver.EXPECT().Resolve(gomock.Any(), "tok-a").Return(idA, nil)
	d.resolver.EXPECT().Resolve(gomock.Any(), "tok-b").Return(idB, nil)
	d.users.EXPECT().SetStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d.users.EXPECT().FindUser(gomock.Any(), bob.Hex()).Return(&model.User{ID: bob, Username: "bob"}, nil)
	d.notifications.EXPECT().CreateNotifications(gomock.Any(), gomock.Any()).Return(nil)
	d.notifications.EXPECT().CountUnread(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	stored := make(chan *model.Message, 1)
	d.messages.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *model.Message) error {
		m.ID = primitive.NewObjectID()
		m.CreatedAt = time.Now()
		stored <- m
		return nil
	})

	url := startGateway(t, srv)
	wsA := dial(t, url, "tok-a")
	req.Eventually(func() bool { return srv.Registry().Online(alice.Hex()) }, 5*time.Second, 10*time.Millisecond)
	wsB := dial(t, url, "tok-b")
	// A learns that B came online, so both are registered
	status, _ := readUntil(t, wsA, EventStatus)
	req.Equal(StatusPayload{UserID: bob.Hex(), Status: model.StatusOnline}, decodeData[StatusPayload](t, status))

	write(t, wsA, CmdMessageSend, map[string]string{"recipientId": bob.Hex(), "content": "hi bob"})
	newMsg, _ := readUntil(t, wsB, EventMessageNew)
	view := decodeData[MessageView](t, newMsg)
	req.Equal("hi bob", view.Content)
	req.Equal(alice.Hex(), view.Sender.ID)
	// the unread count pushed after the notification was created
	_, _ = readUntil(t, wsB, EventNotificationUnread)

	msg := <-stored
	req.Equal(view.ID, msg.ID)
	d.messages.EXPECT().FindMessage(gomock.Any(), msg.ID.Hex()).Return(msg, nil).Times(2)
	d.messages.EXPECT().AppendReader(gomock.Any(), msg.ID.Hex(), bob.Hex(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, at time.Time) (bool, error) {
			msg.ReadBy = append(msg.ReadBy, model.ReadMarker{User: bob, ReadAt: at})
			return true, nil
		})

	write(t, wsB, CmdMessageRead, map[string]string{"messageId": msg.ID.Hex()})
	write(t, wsB, CmdMessageRead, map[string]string{"messageId": msg.ID.Hex()})
	// B's commands run in order, so both reads are done once this reply arrives
	write(t, wsB, CmdNotificationCount, nil)
	_, skippedB := readUntil(t, wsB, EventNotificationUnread)
	for _, ev := range skippedB {
		req.NotEqual(EventError, ev.Name, string(ev.Data))
	}

	write(t, wsA, CmdNotificationCount, nil)
	_, skippedA := readUntil(t, wsA, EventNotificationUnread)
	receipts := 0
	for _, ev := range skippedA {
		if ev.Name == EventMessageReadReceipt {
			receipts++
			p := decodeData[ReadReceiptPayload](t, ev)
			req.Equal(msg.ID.Hex(), p.MessageID)
			req.Equal(bob.Hex(), p.UserID)
		}
	}
	req.Equal(1, receipts, fmt.Sprintf("events seen by A: %v", eventNames(skippedA)))
}

func TestWS_ShutdownClosesLiveAndRefusesNew(t *testing.T) {
	req := require.New(t)
	srv, d := newTestServer(t)
	d.resolver.EXPECT().Resolve(gomock.Any(), "tok").Return(Identity{ID: "alice", Username: "alice"}, nil).Times(2)
	d.users.EXPECT().SetStatus(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	url := startGateway(t, srv)

	ws := dial(t, url, "tok")
	req.Eventually(func() bool { return srv.Registry().Online("alice") }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req.NoError(srv.Shutdown(ctx))
	req.False(srv.Registry().Online("alice"))

	req.NoError(ws.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := ws.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer tok")
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}
