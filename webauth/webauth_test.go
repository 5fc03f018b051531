package webauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moneytrack/config"
	"moneytrack/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestConfig(mode, secret string) {
	config.GlobalConfig = &config.Config{
		Server: config.ServerConfig{Mode: mode},
		JWT:    config.JWTConfig{Secret: secret},
	}
}

func TestSignCookieValue(t *testing.T) {
	initTestConfig("debug", "test-secret")
	defer func() { config.GlobalConfig = nil }()

	// 相同输入得到相同签名
	signed1 := SignCookieValue("123")
	signed2 := SignCookieValue("123")
	assert.Equal(t, signed1, signed2)
	assert.Equal(t, "123.", signed1[:4])

	// 不同密钥签名不同
	initTestConfig("debug", "other-secret")
	assert.NotEqual(t, signed1, SignCookieValue("123"))

	// 空 secret 使用默认值
	initTestConfig("debug", "")
	assert.Greater(t, len(SignCookieValue("abc")), len("abc")+1)
}

func TestVerifyCookieValue(t *testing.T) {
	initTestConfig("debug", "test-secret")
	defer func() { config.GlobalConfig = nil }()

	value, err := VerifyCookieValue(SignCookieValue("7:1700000000"))
	require.NoError(t, err)
	assert.Equal(t, "7:1700000000", value)

	_, err = VerifyCookieValue("")
	assert.Contains(t, err.Error(), "empty")

	_, err = VerifyCookieValue("novalue")
	assert.Contains(t, err.Error(), "invalid")

	_, err = VerifyCookieValue(".sigonly")
	assert.Error(t, err)

	_, err = VerifyCookieValue("value.")
	assert.Error(t, err)

	tampered := "hacker.0000000000000000000000000000000000000000000000000000000000000000"
	_, err = VerifyCookieValue(tampered)
	assert.Contains(t, err.Error(), "signature")
}

func TestCookieOptions(t *testing.T) {
	initTestConfig("debug", "")
	defer func() { config.GlobalConfig = nil }()
	secure, sameSite := CookieOptions()
	assert.False(t, secure)
	assert.Equal(t, http.SameSiteLaxMode, sameSite)

	initTestConfig("release", "")
	secure, _ = CookieOptions()
	assert.True(t, secure)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/transactions?page=2", SafeNext("/transactions?page=2"))
	assert.Equal(t, "/", SafeNext(""))
	assert.Equal(t, "/", SafeNext("https://evil.example.com"))
	assert.Equal(t, "/", SafeNext("//evil.example.com"))
	assert.Equal(t, "/", SafeNext(`/\evil.example.com`))
	assert.Equal(t, "/", SafeNext("budget"))
}

func sessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/login-as/:ttl", func(c *gin.Context) {
		ttl, _ := time.ParseDuration(c.Param("ttl"))
		SetSession(c, 42, ttl)
		c.String(200, "ok")
	})
	router.GET("/logout", func(c *gin.Context) {
		ClearSession(c)
		c.String(200, "ok")
	})
	protected := router.Group("/", SessionAuth())
	protected.GET("/budget", func(c *gin.Context) {
		c.String(200, "id:%d", middleware.GetCurrentUserID(c))
	})
	return router
}

func withCookies(req *http.Request, from *httptest.ResponseRecorder) *http.Request {
	for _, ck := range from.Result().Cookies() {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return req
}

func TestSessionAuth(t *testing.T) {
	initTestConfig("debug", "test-secret")
	defer func() { config.GlobalConfig = nil }()
	router := sessionRouter()

	// 未登录跳转登录页，并带上原路径
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/budget?year=2024", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login?next=%2Fbudget%3Fyear%3D2024", w.Header().Get("Location"))

	// 登录后可访问
	login := httptest.NewRecorder()
	router.ServeHTTP(login, httptest.NewRequest("GET", "/login-as/1h", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, withCookies(httptest.NewRequest("GET", "/budget", nil), login))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:42", w.Body.String())

	// 过期会话视为未登录
	expired := httptest.NewRecorder()
	router.ServeHTTP(expired, httptest.NewRequest("GET", "/login-as/-1h", nil))
	req := httptest.NewRequest("GET", "/budget", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: SignCookieValue("42:1")})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)

	// 篡改的 Cookie
	req = httptest.NewRequest("GET", "/budget", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "1:9999999999.deadbeef"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestClearSession(t *testing.T) {
	initTestConfig("debug", "test-secret")
	defer func() { config.GlobalConfig = nil }()
	router := sessionRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/logout", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}
