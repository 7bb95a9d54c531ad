package natsx

import (
	"context"
	"encoding/json"
	"time"

	"PPChat/tools/errs"
)

const BizPresence = "presence"

// StatusChange 上下线事件，发布到 presence subject。
type StatusChange struct {
	UserID string    `json:"userId"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Node   string    `json:"node"`
}

// PresencePublisher 实现网关的 StatusPublisher。
type PresencePublisher struct {
	producer *NatsxProducer
	node     string
}

func NewPresencePublisher(c *NatsxClient, subject, node string) (*PresencePublisher, error) {
	if err := c.RegisterRoute(NatsxRoute{Biz: BizPresence, Subject: subject}); err != nil {
		return nil, err
	}
	return &PresencePublisher{producer: NewNatsxProducer(c), node: node}, nil
}

func (p *PresencePublisher) PublishStatus(ctx context.Context, userID, status string, at time.Time) error {
	data, err := json.Marshal(StatusChange{UserID: userID, Status: status, At: at, Node: p.node})
	if err != nil {
		return errs.Wrap(err)
	}
	hdr := map[string]string{"user-id": userID, "node": p.node}
	if err := p.producer.Publish(ctx, BizPresence, data, hdr); err != nil {
		return errs.ErrTransient.Reason(errs.ErrTransient.Msg, errs.WrapMsg(err, "publish status", "user", userID))
	}
	return nil
}
