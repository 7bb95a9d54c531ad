package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PPChat/data/database/mgo/mongoutil"
	"PPChat/global"
	"PPChat/logger"
	mid "PPChat/middleware"
	"PPChat/module/chat/store"
	usersvc "PPChat/module/user/service"
	"PPChat/service/chat"
	"PPChat/service/kafka"
	"PPChat/service/natsx"
	"PPChat/service/storage"
	redisx "PPChat/service/storage/redis"
	"PPChat/tools/ids"
	"PPChat/tools/safe"
	"PPChat/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		logger.Error("gateway exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run() error {
	cfg, err := global.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	ids.SetNodeID(ids.NodeIDFromString(cfg.NodeID))
	log := logger.Named("gateway").With(zap.String("node", cfg.NodeID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1) MongoDB
	mcli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: cfg.MongoMaxPoolSize,
		MaxRetry:    3,
	})
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = mcli.Close(context.Background()) }()

	st := store.NewStore(mcli.GetDB(), cfg.StoreTimeout)
	if err := st.EnsureIndexes(ctx); err != nil {
		log.Warn("ensure indexes failed", zap.Error(err))
	}

	jwtOpts := security.DefaultOptions([]byte(cfg.JWTSecret))
	jwtOpts.Alg = cfg.JWTAlg

	deps := chat.Deps{
		Resolver:      usersvc.NewResolver(jwtOpts, st, logger.Named("auth")),
		Rooms:         st,
		Messages:      st,
		Notifications: st,
		Users:         st,
		Log:           logger.Named("chat"),
	}

	// 2) 可选旁路：Redis 在线镜像
	if cfg.RedisEnabled() {
		rdb, err := redisx.NewClient(ctx, redisx.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		deps.Mirror = storage.NewRedisPresence(rdb, cfg.PresenceTTL)
		log.Info("redis presence enabled", zap.String("addr", cfg.RedisAddr))
	}

	// 3) 可选旁路：NATS 上下线广播
	if cfg.NatsEnabled() {
		nc, err := natsx.NewNatsxClient(natsx.NatsxConfig{
			Servers: natsx.ParseServers(cfg.NatsServers),
			Name:    "chat-gateway-" + cfg.NodeID,
		})
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer func() { _ = nc.Close() }()
		pub, err := natsx.NewPresencePublisher(nc, cfg.NatsPresenceSubject, cfg.NodeID)
		if err != nil {
			return err
		}
		deps.Publisher = pub
		log.Info("nats status publisher enabled", zap.String("subject", cfg.NatsPresenceSubject))
	}

	srv := chat.NewServer(chat.Options{
		NodeID:         cfg.NodeID,
		SendQueueSize:  cfg.SendQueueSize,
		PingInterval:   cfg.PingInterval,
		PongWait:       cfg.PongWait,
		WriteWait:      cfg.WriteWait,
		MaxMessageSize: cfg.MaxMessageSize,
		AllowedOrigins: cfg.AllowedOrigins,
	}, deps)

	// 4) 可选旁路：Kafka 通知事件 -> 推送未读数
	if cfg.KafkaEnabled() {
		router := kafka.NewRouter()
		router.RegisterHandler(cfg.KafkaNotificationTopic, kafka.NewNotificationHandler(srv.Notifications()))
		consumer, err := kafka.NewConsumer(kafka.DefaultConfig(cfg.KafkaBrokers, cfg.KafkaGroupID), router, logger.Named("kafka"))
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer func() { _ = consumer.Close() }()
		safe.SafeGo("kafka-consumer", func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("kafka consumer stopped", zap.Error(err))
			}
		})
		log.Info("kafka notification consumer enabled", zap.String("topic", cfg.KafkaNotificationTopic))
	}

	// 5) HTTP
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	manager := mid.NewManager()
	manager.Add(mid.Origin(cfg.AllowedOrigins))
	engine := gin.New()
	engine.Use(mid.Recovery(logger.Named("http")), mid.AccessLog(logger.Named("http")), manager.Use())
	srv.RegisterRoutes(engine)

	hs := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	safe.SafeGo("http-server", func() {
		log.Info("listening", zap.String("addr", hs.Addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	return srv.Shutdown(shutdownCtx)
}
