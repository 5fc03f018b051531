package middleware

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 请求 ID 响应头
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配 ID，沿用客户端传入的值
// 状态码 >= 500 的请求记录日志
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)

		c.Next()

		if status := c.Writer.Status(); status >= 500 {
			log.Printf("[%s] %s %s -> %d %v", id, c.Request.Method, c.Request.URL.Path, status, c.Errors.ByType(gin.ErrorTypeAny))
		}
	}
}

// GetRequestID 当前请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString("requestID")
}
