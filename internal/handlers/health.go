package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceDisplayName = "VeXa"

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": serviceDisplayName})
}
