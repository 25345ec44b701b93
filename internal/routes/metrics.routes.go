package routes

import (
	"net/http"

	"ramwatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterMemoryRoutes registers the snapshot and series endpoints.
func RegisterMemoryRoutes(r gin.IRouter, memory *controllers.MemoryController, history *controllers.HistoryController) {
	api := r.Group("/api")
	{
		api.GET("/memory", memory.GetMemory)
		api.GET("/history", history.GetHistory)
	}
}

// RegisterDebugRoutes exposes the sampling loop's own metrics.
func RegisterDebugRoutes(r gin.IRouter, metrics http.Handler) {
	r.GET("/debug/metrics", gin.WrapH(metrics))
}
