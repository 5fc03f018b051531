// Package webauth 页面端的登录态：带 HMAC 签名的 Cookie
package webauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneytrack/config"
	"moneytrack/middleware"

	"github.com/gin-gonic/gin"
)

// SessionCookie 会话 Cookie 名
const SessionCookie = "moneytrack_session"

// LoginPath 登录页
const LoginPath = "/auth/login"

const defaultSecret = "moneytrack-cookie-secret"

func secret() []byte {
	cfg := config.GetConfig()
	if cfg == nil || cfg.JWT.Secret == "" {
		return []byte(defaultSecret)
	}
	return []byte(cfg.JWT.Secret)
}

func sign(value string) string {
	mac := hmac.New(sha256.New, secret())
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignCookieValue 返回 "value.签名"
func SignCookieValue(value string) string {
	return value + "." + sign(value)
}

// VerifyCookieValue 校验签名并返回原始 value
func VerifyCookieValue(signed string) (string, error) {
	if signed == "" {
		return "", errors.New("empty cookie value")
	}
	idx := strings.LastIndex(signed, ".")
	if idx <= 0 || idx == len(signed)-1 {
		return "", errors.New("invalid cookie format")
	}
	value, sig := signed[:idx], signed[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(sign(value))) {
		return "", errors.New("invalid cookie signature")
	}
	return value, nil
}

// CookieOptions release 模式下启用 Secure；SameSite=Lax 阻止跨站 POST 携带 Cookie
func CookieOptions() (secure bool, sameSite http.SameSite) {
	cfg := config.GetConfig()
	if cfg != nil && cfg.Server.Mode == "release" {
		secure = true
	}
	return secure, http.SameSiteLaxMode
}

// SetSession 写入登录 Cookie，value 为 "用户ID:过期时间戳"
func SetSession(c *gin.Context, userID uint, ttl time.Duration) {
	expires := time.Now().Add(ttl).Unix()
	value := strconv.FormatUint(uint64(userID), 10) + ":" + strconv.FormatInt(expires, 10)
	secure, sameSite := CookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, SignCookieValue(value), int(ttl.Seconds()), "/", "", secure, true)
}

// ClearSession 删除登录 Cookie
func ClearSession(c *gin.Context) {
	secure, sameSite := CookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// SessionUserID 从 Cookie 中取出已验证的用户 ID
func SessionUserID(c *gin.Context) (uint, error) {
	raw, err := c.Cookie(SessionCookie)
	if err != nil {
		return 0, err
	}
	value, err := VerifyCookieValue(raw)
	if err != nil {
		return 0, err
	}
	idStr, expStr, ok := strings.Cut(value, ":")
	if !ok {
		return 0, errors.New("invalid session value")
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return 0, errors.New("invalid session value")
	}
	if time.Now().Unix() > exp {
		return 0, errors.New("session expired")
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid session value")
	}
	return uint(id), nil
}

// SafeNext 只允许站内路径作为登录后的跳转目标
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}

// SessionAuth 页面鉴权中间件，未登录时跳转登录页并带上 next
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := SessionUserID(c)
		if err != nil {
			target := LoginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}
