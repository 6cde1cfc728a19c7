package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vexa-service/internal/middleware"
)

const requestIDContextKey = middleware.RequestIDKey

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// viewerIDFromContext returns the caller's user id, or nil for anonymous
// callers.
func viewerIDFromContext(c *gin.Context) *string {
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		return &userID
	}
	if header := strings.TrimSpace(c.GetHeader(middleware.UserIDHeader)); header != "" {
		return &header
	}
	return nil
}
