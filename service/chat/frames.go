package chat

import (
	"encoding/json"
	"time"

	"PPChat/tools/decode"
	"PPChat/tools/errs"
)

// Inbound command names.
const (
	CmdRoomJoin          = "room:join"
	CmdRoomLeave         = "room:leave"
	CmdRoomTyping        = "room:typing"
	CmdMessageTyping     = "message:typing"
	CmdMessageRead       = "message:read"
	CmdNotificationRead  = "notification:read"
	CmdNotificationCount = "notification:getUnreadCount"
	CmdMessageSend       = "message:send"
	CmdMessageHistory    = "message:history"
)

// Frame is one inbound text message: {"event": ..., "data": {...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Command is the closed set of decoded inbound commands.
type Command interface {
	command() string
}

type JoinRoom struct {
	RoomID string `json:"roomId" validate:"required"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId" validate:"required"`
}

type RoomTyping struct {
	RoomID   string `json:"roomId" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

type PrivateTyping struct {
	RecipientID string `json:"recipientId" validate:"required"`
	IsTyping    bool   `json:"isTyping"`
}

type MarkRead struct {
	MessageID string `json:"messageId" validate:"required"`
	UserID    string `json:"userId"`
}

type ReadNotification struct {
	NotificationID string `json:"notificationId" validate:"required"`
}

type GetUnreadCount struct{}

type SendMessage struct {
	RoomID      string `json:"roomId" validate:"required_without=RecipientID"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content" validate:"required,max=5000"`
}

type LoadHistory struct {
	RoomID string    `json:"roomId" validate:"required_without=UserID"`
	UserID string    `json:"userId"`
	Before time.Time `json:"before"`
	Limit  int       `json:"limit" validate:"min=0"`
}

func (JoinRoom) command() string         { return CmdRoomJoin }
func (LeaveRoom) command() string        { return CmdRoomLeave }
func (RoomTyping) command() string       { return CmdRoomTyping }
func (PrivateTyping) command() string    { return CmdMessageTyping }
func (MarkRead) command() string         { return CmdMessageRead }
func (ReadNotification) command() string { return CmdNotificationRead }
func (GetUnreadCount) command() string   { return CmdNotificationCount }
func (SendMessage) command() string      { return CmdMessageSend }
func (LoadHistory) command() string      { return CmdMessageHistory }

// ParseFrame decodes the envelope only.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, errs.ErrBadRequest.Reason("Invalid message format.", err)
	}
	if f.Event == "" {
		return Frame{}, errs.ErrBadRequest.Reason("Invalid message format.", nil)
	}
	return f, nil
}

// ParseCommand decodes and validates the payload of a frame.
func ParseCommand(f Frame) (Command, error) {
	switch f.Event {
	case CmdRoomJoin:
		return decodeAs[JoinRoom](f.Data)
	case CmdRoomLeave:
		return decodeAs[LeaveRoom](f.Data)
	case CmdRoomTyping:
		return decodeAs[RoomTyping](f.Data)
	case CmdMessageTyping:
		return decodeAs[PrivateTyping](f.Data)
	case CmdMessageRead:
		return decodeAs[MarkRead](f.Data)
	case CmdNotificationRead:
		return decodeAs[ReadNotification](f.Data)
	case CmdNotificationCount:
		return GetUnreadCount{}, nil
	case CmdMessageSend:
		return decodeAs[SendMessage](f.Data)
	case CmdMessageHistory:
		return decodeAs[LoadHistory](f.Data)
	default:
		return nil, errs.ErrBadRequest.Reason("Unknown event.", errs.New("unknown event", "event", f.Event))
	}
}

func decodeAs[T Command](raw json.RawMessage) (Command, error) {
	v, err := decode.DecodeJSON[T](raw)
	if err != nil {
		return nil, err
	}
	return *v, nil
}
