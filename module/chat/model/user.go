package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserTableName = "users"

	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User 用户文档；网关只读 username/avatar，只写 status/lastSeen。
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	Avatar   string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status   string             `bson:"status" json:"status"`
	LastSeen time.Time          `bson:"lastSeen" json:"lastSeen"`
}

func (*User) TableName() string { return UserTableName }
