package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoginRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 短窗口 200ms，最多 2 次
	router := gin.New()
	router.Use(LoginRateLimit(2, 200*time.Millisecond))
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.String(200, "ok")
	})
	router.POST("/auth/login", func(c *gin.Context) {
		c.String(200, "ok")
	})

	doReq := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, nil)
		req.Header.Set("X-Real-IP", ip)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 同一 IP 连续 3 次，第 3 次应返回 429
	w1 := doReq("/api/v1/auth/login", "192.168.1.1")
	w2 := doReq("/api/v1/auth/login", "192.168.1.1")
	w3 := doReq("/api/v1/auth/login", "192.168.1.1")
	assert.Equal(t, 200, w1.Code)
	assert.Equal(t, 200, w2.Code)
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Contains(t, w3.Body.String(), "频繁")
	assert.Contains(t, w3.Body.String(), `"code":429`)

	// 页面登录返回纯文本
	w4 := doReq("/auth/login", "192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w4.Code)
	assert.NotContains(t, w4.Body.String(), "code")

	// 不同 IP 互不影响
	assert.Equal(t, 200, doReq("/auth/login", "192.168.1.2").Code)
	assert.Equal(t, 200, doReq("/auth/login", "192.168.1.2").Code)

	// 窗口过后恢复
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 200, doReq("/api/v1/auth/login", "192.168.1.1").Code)
}

func TestSlidingWindow_Sweep(t *testing.T) {
	w := newSlidingWindow(1, time.Minute)
	now := time.Now()

	assert.True(t, w.allow("a", now))
	assert.False(t, w.allow("a", now.Add(time.Second)))

	w.sweep(now.Add(2 * time.Minute))
	assert.Empty(t, w.store)
	assert.True(t, w.allow("a", now.Add(2*time.Minute)))
}
