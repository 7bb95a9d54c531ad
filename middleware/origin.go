package middleware

import (
	"net/http"
	"strings"

	"PPChat/global"

	"github.com/gin-gonic/gin"
)

// OriginAllowed 返回 Origin 白名单校验函数；"*" 放行全部，无 Origin 头（非浏览器客户端）放行。
func OriginAllowed(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	any := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			any = true
		}
		set[strings.ToLower(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || any {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}

// Origin 拒绝白名单之外的浏览器来源，并回写 CORS 头。
// 不调用 c.Next，可以挂到 MiddlewareManager 上。
func Origin(allowed []string) gin.HandlerFunc {
	check := OriginAllowed(allowed)
	return func(c *gin.Context) {
		if !check(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, global.Fail(http.StatusForbidden, "origin not allowed"))
			return
		}
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
	}
}
