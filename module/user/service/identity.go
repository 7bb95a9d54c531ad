package service

import (
	"context"
	"strings"

	"PPChat/module/chat/contract"
	"PPChat/module/chat/model"
	"PPChat/tools/errs"
	jwtlib "PPChat/tools/security"

	"go.uber.org/zap"
)

type UserFinder interface {
	FindUser(ctx context.Context, userID string) (*model.User, error)
}

// Resolver 把握手时携带的 JWT 解析成已认证身份：验签 -> 取用户ID -> 查库确认用户存在。
// 任一步失败都返回 Unauthenticated，具体原因只写日志。
type Resolver struct {
	opts  jwtlib.Options
	users UserFinder
	log   *zap.Logger
}

func NewResolver(opts jwtlib.Options, users UserFinder, log *zap.Logger) *Resolver {
	return &Resolver{opts: opts, users: users, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (contract.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return contract.Identity{}, errs.ErrUnauthenticated.Reason("Authentication error: Token not provided", nil)
	}
	claims, err := jwtlib.Verify(r.opts, token, "")
	if err != nil {
		r.log.Debug("token rejected", zap.Error(err))
		return contract.Identity{}, errs.ErrUnauthenticated.Reason("Authentication error: Invalid token", err)
	}
	userID := claims.UserID()
	if userID == "" {
		return contract.Identity{}, errs.ErrUnauthenticated.Reason("Authentication error: Invalid token", nil)
	}
	user, err := r.users.FindUser(ctx, userID)
	if err != nil {
		r.log.Info("token subject lookup failed", zap.String("userId", userID), zap.Error(err))
		return contract.Identity{}, errs.ErrUnauthenticated.Reason("Authentication error: User not found", err)
	}
	return contract.Identity{
		ID:       user.ID.Hex(),
		Username: user.Username,
		Avatar:   user.Avatar,
	}, nil
}
