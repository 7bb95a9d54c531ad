package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

type AppConfig struct {
	Brokers               []string
	GroupID               string
	ConsumerInitialOffset string // newest/oldest
	KafkaVersion          sarama.KafkaVersion
}

func DefaultConfig(brokers []string, groupID string) AppConfig {
	return AppConfig{
		Brokers:               brokers,
		GroupID:               groupID,
		ConsumerInitialOffset: "newest",
		KafkaVersion:          sarama.V2_1_0_0,
	}
}

func BuildConsumerConfig(c AppConfig) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = c.KafkaVersion
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.AutoCommit.Enable = true
	cfg.Consumer.Offsets.AutoCommit.Interval = time.Second
	cfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategySticky
	if strings.EqualFold(c.ConsumerInitialOffset, "oldest") {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	return cfg
}
