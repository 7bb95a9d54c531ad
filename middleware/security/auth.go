package security

import (
	"net/http"
	"strings"

	"PPChat/global"
	"PPChat/module/chat/contract"
	"PPChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// context keys
// 后续模块统一用这俩 key 读取
const (
	PPCtxAuthKey     = "authorization" // string
	PPCtxIdentityKey = "identity"      // contract.Identity
)

type Options struct {
	// 读取哪个请求头
	HeaderToken               string // 默认 "authorization"
	QueryToken                string // 默认 "token"，浏览器 websocket 无法自定义请求头
	EnableAuthorizationBearer bool   // 默认 true
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               PPCtxAuthKey,
		QueryToken:                "token",
		EnableAuthorizationBearer: true,
	}
}

// TokenFromRequest 依次尝试 Authorization: Bearer、自定义头、query 参数。
func TokenFromRequest(r *http.Request, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}
	// 兼容 Authorization: Bearer xxx
	if opts.EnableAuthorizationBearer {
		if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				return strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	if token := strings.TrimSpace(r.Header.Get(opts.HeaderToken)); token != "" {
		return token
	}
	if opts.QueryToken != "" {
		return strings.TrimSpace(r.URL.Query().Get(opts.QueryToken))
	}
	return ""
}

// Middleware 解析身份并写入 context；失败直接 401，不会进入后续 handler。
func Middleware(opts *Options, resolver contract.IdentityResolver) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request, opts)
		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				global.Fail(errs.UnauthenticatedError, errs.Public(err, "Authentication error")))
			return
		}
		c.Set(PPCtxAuthKey, token)
		c.Set(PPCtxIdentityKey, id)
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (contract.Identity, bool) {
	v, ok := c.Get(PPCtxIdentityKey)
	if !ok {
		return contract.Identity{}, false
	}
	id, ok := v.(contract.Identity)
	return id, ok
}
