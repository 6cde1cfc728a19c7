package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"vexa-service/internal/repositories"
)

// ChatHandler serves stored chat history.
type ChatHandler struct {
	chatRepo repositories.ChatRepository
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository) *ChatHandler {
	return &ChatHandler{chatRepo: chatRepo}
}

// History returns the most recent messages, newest first. With both userId
// and peerId it returns that conversation, oldest first.
func (h *ChatHandler) History(c *gin.Context) {
	userID := c.Query("userId")
	peerID := c.Query("peerId")
	if (userID == "") != (peerID == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and peerId must be given together"})
		return
	}

	if userID != "" {
		msgs, err := h.chatRepo.GetChatHistory(c.Request.Context(), userID, peerID)
		if err != nil {
			slog.Error("load conversation failed", "user_id", userID, "peer_id", peerID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get chat history"})
			return
		}
		c.JSON(http.StatusOK, msgs)
		return
	}

	msgs, err := h.chatRepo.RecentChats(c.Request.Context(), repositories.RecentLimit)
	if err != nil {
		slog.Error("load recent chats failed", "request_id", requestIDFromContext(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get chat history"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}
