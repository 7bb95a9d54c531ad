package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOriginAllowed(t *testing.T) {
	check := OriginAllowed([]string{"http://localhost:3000/", "https://chat.example.com"})
	cases := map[string]bool{
		"":                         true,
		"http://localhost:3000":    true,
		"HTTPS://chat.example.com": true,
		"http://evil.example":      false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		require.Equal(t, want, check(r), origin)
	}

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "http://anything")
	require.True(t, OriginAllowed([]string{"*"})(r))
}

func TestManager_OriginAbortsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	m.Add(Origin([]string{"http://localhost:3000"}))
	engine := gin.New()
	engine.Use(Recovery(zap.NewNop()), AccessLog(zap.NewNop()), m.Use())
	GET(engine, "/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }, RouteOpt{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	engine.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "http://evil.example")
	engine.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Recovery(zap.NewNop()))
	engine.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
