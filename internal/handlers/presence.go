package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LocalPresence reports sessions connected to this instance.
type LocalPresence interface {
	Count(userID string) int
}

// ClusterPresence reports whether any instance holds a session for a user.
type ClusterPresence interface {
	Online(ctx context.Context, userID string) (bool, error)
}

type PresenceHandler struct {
	local   LocalPresence
	cluster ClusterPresence
}

// NewPresenceHandler builds a PresenceHandler. cluster may be nil.
func NewPresenceHandler(local LocalPresence, cluster ClusterPresence) *PresenceHandler {
	return &PresenceHandler{local: local, cluster: cluster}
}

func (h *PresenceHandler) Get(c *gin.Context) {
	userID := c.Param("user_id")
	sessions := h.local.Count(userID)
	online := sessions > 0

	if !online && h.cluster != nil {
		remote, err := h.cluster.Online(c.Request.Context(), userID)
		if err != nil {
			// Fall back to the local view.
			slog.Warn("cluster presence lookup failed", "user_id", userID, "error", err)
		}
		online = remote
	}

	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online, "sessions": sessions})
}
