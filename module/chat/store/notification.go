package store

import (
	"context"
	"errors"

	"PPChat/data/database/mgo/mongoutil"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) FindNotification(ctx context.Context, notificationID string) (*model.Notification, error) {
	oid, err := mongoutil.ObjectID(notificationID)
	if err != nil {
		return nil, errs.ErrRecordNotFound.Reason("Notification not found.", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n model.Notification
	if err := s.NotificationColl.FindOne(ctx, bson.M{"_id": oid}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.Reason("Notification not found.", err)
		}
		return nil, mongoutil.ClassifyErr(err, "find notification")
	}
	return &n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, notificationID string) error {
	oid, err := mongoutil.ObjectID(notificationID)
	if err != nil {
		return errs.ErrRecordNotFound.Reason("Notification not found.", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.NotificationColl.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"isRead": true, "updatedAt": s.now()},
	})
	if err != nil {
		return mongoutil.ClassifyErr(err, "mark notification read")
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.Reason("Notification not found.", nil)
	}
	return nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	oid, err := mongoutil.ObjectID(userID)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.NotificationColl.CountDocuments(ctx, bson.M{"recipient": oid, "isRead": false})
	if err != nil {
		return 0, mongoutil.ClassifyErr(err, "count unread")
	}
	return n, nil
}

func (s *Store) CreateNotifications(ctx context.Context, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	now := s.now()
	docs := lo.Map(ns, func(n *model.Notification, _ int) any {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		n.CreatedAt, n.UpdatedAt = now, now
		return n
	})

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.NotificationColl.InsertMany(ctx, docs)
	return mongoutil.ClassifyErr(err, "create notifications")
}
