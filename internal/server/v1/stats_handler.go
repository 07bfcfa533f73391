package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loopline/concierge/internal/store"
	"github.com/loopline/concierge/pkg/api"
)

type StatsHandler struct {
	repo store.Repository
}

func NewStatsHandler(repo store.Repository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// GetDailyStats returns aggregated attempt counts for the trailing N days.
func (h *StatsHandler) GetDailyStats(c *gin.Context) {
	daysStr := c.DefaultQuery("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < 1 {
		_ = c.Error(api.BadRequestError("Invalid 'days' parameter"))
		return
	}

	stats, err := h.repo.Attempts().GetDailyStats(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch attempt stats", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   stats,
	})
}

// GetRequestTrail returns the full provider attempt trail for one request id.
func (h *StatsHandler) GetRequestTrail(c *gin.Context) {
	requestID := c.Param("id")

	attempts, err := h.repo.Attempts().GetByRequestID(c.Request.Context(), requestID)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch attempt trail", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   attempts,
	})
}
