package store

import (
	"context"
	"errors"
	"time"

	"PPChat/data/database/mgo/mongoutil"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) FindUser(ctx context.Context, userID string) (*model.User, error) {
	oid, err := mongoutil.ObjectID(userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user model.User
	opts := options.FindOne().SetProjection(bson.M{"password": 0})
	if err := s.UserColl.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.WrapMsg("user", "id", userID)
		}
		return nil, mongoutil.ClassifyErr(err, "find user")
	}
	return &user, nil
}

func (s *Store) SetStatus(ctx context.Context, userID, status string, at time.Time) error {
	oid, err := mongoutil.ObjectID(userID)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.UserColl.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"status": status, "lastSeen": at},
	})
	return mongoutil.ClassifyErr(err, "set user status")
}
