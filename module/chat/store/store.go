package store

import (
	"context"
	"time"

	"PPChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 5 * time.Second

// Store 聊天相关集合的 Mongo 访问层，实现网关所需的各个仓储接口。
type Store struct {
	UserColl         *mongo.Collection // users
	RoomColl         *mongo.Collection // rooms
	MsgColl          *mongo.Collection // messages
	NotificationColl *mongo.Collection // notifications

	timeout time.Duration
	now     func() time.Time
}

func NewStore(db *mongo.Database, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		UserColl:         db.Collection((&model.User{}).TableName()),
		RoomColl:         db.Collection((&model.Room{}).TableName()),
		MsgColl:          db.Collection((&model.Message{}).TableName()),
		NotificationColl: db.Collection((&model.Notification{}).TableName()),
		timeout:          timeout,
		now:              time.Now,
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureIndexes 创建历史分页与未读计数用到的索引，可重复执行。
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.MsgColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return err
	}
	_, err := s.NotificationColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}},
		Options: options.Index().SetName("recipient_unread"),
	})
	return err
}
