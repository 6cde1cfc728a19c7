package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vexa-service/internal/telemetry"
)

// DebugHandler serves development-only endpoints.
type DebugHandler struct {
	emitter *telemetry.Emitter
}

func NewDebugHandler(emitter *telemetry.Emitter) *DebugHandler {
	return &DebugHandler{emitter: emitter}
}

// AuditTest publishes one audit event so the AMQP wiring can be checked by
// hand. Level and text may be overridden with ?level= and ?text=.
func (h *DebugHandler) AuditTest(c *gin.Context) {
	if h.emitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
		return
	}

	level := strings.ToUpper(c.DefaultQuery("level", "INFO"))
	text := c.DefaultQuery("text", "audit test")
	requestID := requestIDFromContext(c)
	h.emitter.Audit(c.Request.Context(), level, text, requestID, viewerIDFromContext(c))

	c.JSON(http.StatusOK, gin.H{"status": "published", "level": level, "request_id": requestID})
}
