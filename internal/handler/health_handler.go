package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the liveness check used by the deployment platform.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "payment link service is running"})
}
