package kafka

import (
	"context"
	"errors"

	"PPChat/tools/safe"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

type ConsumerGroupHandler struct {
	router *Router
	log    *zap.Logger
}

func (h *ConsumerGroupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.log.Info("consumer group setup", zap.String("member", sess.MemberID()))
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Info("consumer group cleanup")
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handle(session.Context(), msg)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle 处理失败只记录日志，不阻塞分区消费。
func (h *ConsumerGroupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	defer safe.Recover("kafka-handler")

	handler, err := h.router.GetHandler(msg.Topic)
	if err != nil {
		h.log.Warn("no handler", zap.String("topic", msg.Topic), zap.Error(err))
		return
	}
	if err := handler(ctx, msg.Topic, msg.Key, msg.Value); err != nil {
		h.log.Warn("handler error",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler *ConsumerGroupHandler
	log     *zap.Logger
}

func NewConsumer(cfg AppConfig, router *Router, log *zap.Logger) (*Consumer, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, BuildConsumerConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &Consumer{
		group:   group,
		handler: &ConsumerGroupHandler{router: router, log: log},
		log:     log,
	}, nil
}

// Run 阻塞消费直到 ctx 取消；rebalance 后自动重新加入。
func (c *Consumer) Run(ctx context.Context) error {
	safe.SafeGo("kafka-errors", func() {
		for err := range c.group.Errors() {
			c.log.Warn("consumer group error", zap.Error(err))
		}
	})

	topics := c.handler.router.Topics()
	for {
		if err := c.group.Consume(ctx, topics, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Warn("consume error", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}
