package controllers

import (
	"net/http"
	"strconv"

	"ramwatch/internal/models"
	"ramwatch/internal/services"

	"github.com/gin-gonic/gin"
)

// HistoryController serves the series accumulated by the sampling loop.
type HistoryController struct {
	history *services.HistoryRecorder
}

// NewHistoryController creates a controller over history.
func NewHistoryController(history *services.HistoryRecorder) *HistoryController {
	return &HistoryController{history: history}
}

// GetHistory returns the chart frame recorded on the last tick.
// Query params: since=N returns only points with a tick above N (default 0,
// the whole series).
func (hc *HistoryController) GetHistory(c *gin.Context) {
	since := uint64(0)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
			return
		}
		since = parsed
	}

	frame := hc.history.Frame()
	frame.Points = models.PointsSince(frame.Points, since)

	c.JSON(http.StatusOK, gin.H{
		"title":      frame.Title,
		"x_label":    frame.XLabel,
		"y_label":    frame.YLabel,
		"x_scale":    frame.XScale,
		"since":      since,
		"points":     frame.Points,
		"latest":     frame.Latest,
		"updated_at": hc.history.LastUpdated(),
	})
}
