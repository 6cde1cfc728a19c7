package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserIDHeader    = "X-User-Id"
	RequestIDHeader = "X-Request-ID"

	UserIDKey    = "userID"
	RequestIDKey = "request_id"
)

// Identity copies the caller-declared user id into the gin context. The
// header is optional; authentication happens upstream.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
			c.Set(UserIDKey, userID)
		}
		c.Next()
	}
}

// RequestID makes sure every request carries an id and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(RequestIDHeader, requestID)
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}
