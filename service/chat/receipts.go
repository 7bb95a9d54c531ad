package chat

import (
	"context"
	"time"

	"PPChat/module/chat/contract"
	"PPChat/tools/errs"

	"go.uber.org/zap"
)

// Receipts records read markers and routes a single receipt per reader.
type Receipts struct {
	messages contract.MessageStore
	fanout   *Fanout
	log      *zap.Logger
	now      func() time.Time
}

func NewReceipts(messages contract.MessageStore, fanout *Fanout, log *zap.Logger) *Receipts {
	return &Receipts{messages: messages, fanout: fanout, log: log, now: time.Now}
}

// MarkRead marks messageID as read by readerID, who must be the caller; an
// empty readerID means the caller. It reports whether a receipt was sent:
// repeated or concurrent calls for the same reader send exactly one.
func (r *Receipts) MarkRead(ctx context.Context, caller Identity, readerID, messageID string) (bool, error) {
	if readerID == "" {
		readerID = caller.ID
	}
	if readerID != caller.ID {
		return false, errs.ErrForbidden.Reason("Not authorized to mark this message as read.", nil)
	}
	if messageID == "" {
		return false, errs.ErrRecordNotFound.Reason("Message not found.", nil)
	}

	msg, err := r.messages.FindMessage(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.HasReader(readerID) {
		return false, nil
	}

	readAt := r.now().UTC().Truncate(time.Millisecond)
	added, err := r.messages.AppendReader(ctx, messageID, readerID, readAt)
	if err != nil {
		return false, err
	}
	if !added {
		// lost the race against another connection of the same reader
		return false, nil
	}

	var target Target = ToRoom{RoomID: msg.RoomID()}
	if msg.IsPrivate {
		target = ToUser{UserID: msg.SenderID()}
	}
	r.fanout.Dispatch(target, Event{
		Name: EventMessageReadReceipt,
		Data: ReadReceiptPayload{MessageID: messageID, UserID: readerID, ReadAt: readAt},
	})
	return true, nil
}
