package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"vexa-service/internal/matching"
	"vexa-service/internal/repositories"
)

// DefaultViewerInterests are used for anonymous or unknown viewers.
var DefaultViewerInterests = []string{"Design", "Tech"}

// MatchHandler serves recommendations.
type MatchHandler struct {
	users  repositories.UserRepository
	scorer *matching.Scorer
}

// NewMatchHandler builds a MatchHandler.
func NewMatchHandler(users repositories.UserRepository, scorer *matching.Scorer) *MatchHandler {
	return &MatchHandler{users: users, scorer: scorer}
}

// Recommendations ranks every other user against the viewer's interests.
func (h *MatchHandler) Recommendations(c *gin.Context) {
	ctx := c.Request.Context()

	viewerID := ""
	interests := DefaultViewerInterests
	if id := viewerIDFromContext(c); id != nil {
		viewer, err := h.users.GetUser(ctx, *id)
		switch {
		case err == nil:
			viewerID = viewer.ID
			interests = viewer.Interests
		case errors.Is(err, repositories.ErrUserNotFound):
		default:
			slog.Error("load viewer failed", "user_id", *id, "request_id", requestIDFromContext(c), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recommendations"})
			return
		}
	}

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		slog.Error("list users failed", "request_id", requestIDFromContext(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recommendations"})
		return
	}

	c.JSON(http.StatusOK, h.scorer.Rank(viewerID, interests, users, matching.DefaultLimit))
}
