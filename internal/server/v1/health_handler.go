package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/internal/platform/release"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": release.AppVersion,
	})
}
