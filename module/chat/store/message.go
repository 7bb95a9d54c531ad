package store

import (
	"context"
	"errors"
	"time"

	"PPChat/data/database/mgo/mongoutil"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) FindMessage(ctx context.Context, messageID string) (*model.Message, error) {
	oid, err := mongoutil.ObjectID(messageID)
	if err != nil {
		return nil, errs.ErrRecordNotFound.Reason("Message not found.", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var msg model.Message
	if err := s.MsgColl.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.Reason("Message not found.", err)
		}
		return nil, mongoutil.ClassifyErr(err, "find message")
	}
	return &msg, nil
}

// AppendReader 条件追加已读标记：只有 readBy 中尚无该用户时才 $push。
// 返回 true 表示本次调用真正修改了文档；并发的重复调用至多一个返回 true。
func (s *Store) AppendReader(ctx context.Context, messageID, userID string, readAt time.Time) (bool, error) {
	msgOID, err := mongoutil.ObjectID(messageID)
	if err != nil {
		return false, errs.ErrRecordNotFound.Reason("Message not found.", err)
	}
	userOID, err := mongoutil.ObjectID(userID)
	if err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": msgOID, "readBy.user": bson.M{"$ne": userOID}}
	update := bson.M{
		"$push": bson.M{"readBy": model.ReadMarker{User: userOID, ReadAt: readAt}},
		"$set":  bson.M{"updatedAt": s.now()},
	}
	res, err := s.MsgColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, mongoutil.ClassifyErr(err, "append reader")
	}
	return res.ModifiedCount == 1, nil
}

// CreateMessage 写入新消息；ID 与时间戳在此生成。
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	now := s.now()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	if msg.Attachments == nil {
		msg.Attachments = []model.Attachment{}
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []model.ReadMarker{}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.MsgColl.InsertOne(ctx, msg)
	return mongoutil.ClassifyErr(err, "create message")
}

func (s *Store) ListRoomMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]*model.Message, error) {
	oid, err := mongoutil.ObjectID(roomID)
	if err != nil {
		return nil, errs.ErrRecordNotFound.Reason("Room not found.", err)
	}
	return s.listMessages(ctx, bson.M{"room": oid}, before, limit)
}

// ListPrivateMessages 两个用户之间的私聊，双向。
func (s *Store) ListPrivateMessages(ctx context.Context, userA, userB string, before time.Time, limit int) ([]*model.Message, error) {
	a, err := mongoutil.ObjectID(userA)
	if err != nil {
		return nil, err
	}
	b, err := mongoutil.ObjectID(userB)
	if err != nil {
		return nil, errs.ErrRecordNotFound.Reason("Recipient not found.", err)
	}
	filter := bson.M{
		"isPrivate": true,
		"$or": bson.A{
			bson.M{"sender": a, "recipient": b},
			bson.M{"sender": b, "recipient": a},
		},
	}
	return s.listMessages(ctx, filter, before, limit)
}

// listMessages 按 createdAt 倒序取一页，再翻转为时间正序返回。
func (s *Store) listMessages(ctx context.Context, filter bson.M, before time.Time, limit int) ([]*model.Message, error) {
	if !before.IsZero() {
		filter["createdAt"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(model.ClampHistoryLimit(limit)))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.MsgColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoutil.ClassifyErr(err, "list messages")
	}
	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoutil.ClassifyErr(err, "decode messages")
	}
	return lo.Reverse(out), nil
}
