package global

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig 网关进程的全部配置，来自环境变量（可选 .env 文件）。
type AppConfig struct {
	Port     int    `envconfig:"PORT" default:"5000" validate:"min=1,max=65535"`
	NodeID   string `envconfig:"NODE_ID" default:"gateway_01" validate:"required"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	MongoURI         string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017" validate:"required"`
	MongoDatabase    string        `envconfig:"MONGO_DATABASE" default:"chat-app" validate:"required"`
	MongoMaxPoolSize int           `envconfig:"MONGO_MAX_POOL_SIZE" default:"20" validate:"min=1"`
	StoreTimeout     time.Duration `envconfig:"STORE_TIMEOUT" default:"5s" validate:"min=1ms"`

	JWTSecret      string   `envconfig:"JWT_SECRET" validate:"required"`
	JWTAlg         string   `envconfig:"JWT_ALG" default:"HS256" validate:"oneof=HS256 HS384 HS512"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// 留空即关闭对应的旁路（Redis 在线镜像 / NATS 状态广播 / Kafka 通知消费）。
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"min=0"`
	PresenceTTL   time.Duration `envconfig:"PRESENCE_TTL" default:"90s" validate:"min=1s"`

	NatsServers         string `envconfig:"NATS_SERVERS"`
	NatsPresenceSubject string `envconfig:"NATS_PRESENCE_SUBJECT" default:"chat.presence"`

	KafkaBrokers           []string `envconfig:"KAFKA_BROKERS"`
	KafkaGroupID           string   `envconfig:"KAFKA_GROUP_ID" default:"chat-gateway"`
	KafkaNotificationTopic string   `envconfig:"KAFKA_NOTIFICATION_TOPIC" default:"chat.notifications"`

	SendQueueSize  int           `envconfig:"SEND_QUEUE_SIZE" default:"256" validate:"min=1"`
	PingInterval   time.Duration `envconfig:"PING_INTERVAL" default:"25s" validate:"min=1ms"`
	PongWait       time.Duration `envconfig:"PONG_WAIT" default:"60s" validate:"gtfield=PingInterval"`
	WriteWait      time.Duration `envconfig:"WRITE_WAIT" default:"10s" validate:"min=1ms"`
	MaxMessageSize int64         `envconfig:"MAX_MESSAGE_SIZE" default:"65536" validate:"min=512"`
}

func (c AppConfig) RedisEnabled() bool { return c.RedisAddr != "" }
func (c AppConfig) NatsEnabled() bool  { return c.NatsServers != "" }
func (c AppConfig) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// LoadConfig reads .env (if any), then the process environment.
func LoadConfig() (AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
