package store

import (
	"context"
	"errors"

	"PPChat/data/database/mgo/mongoutil"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) FindRoom(ctx context.Context, roomID string) (*model.Room, error) {
	oid, err := mongoutil.ObjectID(roomID)
	if err != nil {
		return nil, errs.ErrRecordNotFound.Reason("Room not found.", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var room model.Room
	if err := s.RoomColl.FindOne(ctx, bson.M{"_id": oid}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.Reason("Room not found.", err)
		}
		return nil, mongoutil.ClassifyErr(err, "find room")
	}
	return &room, nil
}

// AuthorizeRoom 返回房间并校验 userID 是否可访问：私有房间仅成员可进。
func (s *Store) AuthorizeRoom(ctx context.Context, userID, roomID string) (*model.Room, error) {
	room, err := s.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.CanAccess(userID) {
		return nil, errs.ErrForbidden.Reason("Access denied to this room.", nil)
	}
	return room, nil
}
