package chat

import (
	"context"

	"PPChat/tools/errs"

	"go.uber.org/zap"
)

// client-facing fallback per command when the failure is not the client's
var failureText = map[string]string{
	CmdRoomJoin:          "Failed to join room.",
	CmdRoomLeave:         "Failed to leave room.",
	CmdMessageRead:       "Failed to mark message as read.",
	CmdNotificationRead:  "Failed to mark notification as read.",
	CmdNotificationCount: "Failed to get unread notifications count.",
	CmdMessageSend:       "Failed to send message.",
	CmdMessageHistory:    "Failed to load messages.",
}

// Session runs the inbound commands of one connection, in arrival order.
type Session struct {
	srv  *Server
	conn *Conn
	log  *zap.Logger
}

func newSession(srv *Server, c *Conn) *Session {
	return &Session{
		srv:  srv,
		conn: c,
		log:  srv.log.With(zap.String("conn", c.ID()), zap.String("user", c.UserID())),
	}
}

// Handle parses one raw frame and runs it. Errors go to this connection only.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	event := ""
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("command panic", zap.String("event", event), zap.Error(errs.ErrPanic(r)), zap.Stack("stack"))
			s.fail(event, errs.ErrInternal.Wrap())
		}
	}()

	f, err := ParseFrame(raw)
	if err != nil {
		s.fail("", err)
		return
	}
	event = f.Event
	cmd, err := ParseCommand(f)
	if err != nil {
		s.fail(event, err)
		return
	}
	if err := s.dispatch(ctx, cmd); err != nil {
		s.fail(event, err)
	}
}

func (s *Session) dispatch(ctx context.Context, cmd Command) error {
	c := s.conn
	switch cmd := cmd.(type) {
	case JoinRoom:
		return s.joinRoom(ctx, cmd.RoomID)
	case LeaveRoom:
		s.leaveRoom(cmd.RoomID)
		return nil
	case RoomTyping:
		s.srv.messages.RoomTyping(c, cmd.RoomID, cmd.IsTyping)
		return nil
	case PrivateTyping:
		s.srv.messages.PrivateTyping(c, cmd.RecipientID, cmd.IsTyping)
		return nil
	case MarkRead:
		_, err := s.srv.receipts.MarkRead(ctx, c.User(), cmd.UserID, cmd.MessageID)
		return err
	case ReadNotification:
		return s.srv.notifications.MarkNotificationRead(ctx, c.User(), cmd.NotificationID)
	case GetUnreadCount:
		count, err := s.srv.notifications.UnreadCount(ctx, c.UserID())
		if err != nil {
			return err
		}
		s.srv.fanout.Dispatch(ToUser{UserID: c.UserID()}, Event{
			Name: EventNotificationUnread,
			Data: UnreadCountPayload{Count: count},
		})
		return nil
	case SendMessage:
		_, err := s.srv.messages.Send(ctx, c.User(), cmd)
		return err
	case LoadHistory:
		page, err := s.srv.messages.History(ctx, c.User(), cmd)
		if err != nil {
			return err
		}
		s.srv.fanout.Dispatch(ToConn{Conn: c}, Event{Name: EventMessageHistory, Data: page})
		return nil
	default:
		return errs.ErrBadRequest.Reason("Unknown event.", nil)
	}
}

func (s *Session) joinRoom(ctx context.Context, roomID string) error {
	c := s.conn
	if _, err := s.srv.roomStore.AuthorizeRoom(ctx, c.UserID(), roomID); err != nil {
		return err
	}
	added, err := s.srv.rooms.Join(c, roomID)
	if err != nil || !added {
		return err
	}
	s.log.Info("joined room", zap.String("room", roomID))
	s.srv.fanout.Dispatch(ToRoom{RoomID: roomID, Excluding: c}, Event{
		Name: EventRoomUserJoined,
		Data: RoomUserJoinedPayload{RoomID: roomID, User: briefOf(c.User())},
	})
	return nil
}

func (s *Session) leaveRoom(roomID string) {
	c := s.conn
	if !s.srv.rooms.Leave(c, roomID) {
		return
	}
	s.log.Info("left room", zap.String("room", roomID))
	s.srv.fanout.Dispatch(ToRoom{RoomID: roomID, Excluding: c}, Event{
		Name: EventRoomUserLeft,
		Data: RoomUserLeftPayload{RoomID: roomID, UserID: c.UserID()},
	})
}

// fail logs err and reports a client-safe message to this connection.
func (s *Session) fail(event string, err error) {
	fallback, ok := failureText[event]
	if !ok {
		fallback = "Something went wrong."
	}
	msg := errs.Public(err, fallback)
	if errs.CodeOf(err) >= errs.ServerInternalError {
		s.log.Error("command failed", zap.String("event", event), zap.Error(err))
	} else {
		s.log.Info("command rejected", zap.String("event", event), zap.Error(err))
	}
	s.srv.fanout.Dispatch(ToConn{Conn: s.conn}, Event{Name: EventError, Data: ErrorPayload{Message: msg}})
}
