package storage

import (
	"context"
	"time"

	"PPChat/global"
	"PPChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

const defaultPresenceTTL = 90 * time.Second

// RedisPresence 把网关内的在线状态镜像到 Redis：
// key presence:user:<user>，value 为网关节点ID，TTL 控制在线有效期，由 pong 续期。
type RedisPresence struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPresence(rdb redis.Cmdable, ttl time.Duration) *RedisPresence {
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &RedisPresence{rdb: rdb, ttl: ttl}
}

// SetOnline sets the user as online and renews the TTL
func (p *RedisPresence) SetOnline(ctx context.Context, userID, nodeID string) error {
	return wrapRedis(p.rdb.Set(ctx, global.PresenceKey(userID), nodeID, p.ttl).Err(), "presence online")
}

// Touch renews the TTL; a missing key is not an error.
func (p *RedisPresence) Touch(ctx context.Context, userID string) error {
	return wrapRedis(p.rdb.Expire(ctx, global.PresenceKey(userID), p.ttl).Err(), "presence touch")
}

// SetOffline actively sets the user offline (deletes the key)
func (p *RedisPresence) SetOffline(ctx context.Context, userID string) error {
	return wrapRedis(p.rdb.Del(ctx, global.PresenceKey(userID)).Err(), "presence offline")
}

func wrapRedis(err error, what string) error {
	if err == nil {
		return nil
	}
	return errs.ErrTransient.Reason(errs.ErrTransient.Msg, errs.WrapMsg(err, what))
}
