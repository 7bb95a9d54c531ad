package chat

import (
	"time"

	"PPChat/module/chat/contract"
)

// Identity is resolved once at handshake and never changes for a connection.
type Identity = contract.Identity

// Options 网关连接参数，来自 global.AppConfig。
type Options struct {
	NodeID         string
	SendQueueSize  int
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

func (o *Options) setDefaults() {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 << 10
	}
}
