package routes

import (
	"ramwatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterStreamRoutes registers WebSocket routes only.
// Token generation is done via the -issue-token flag (no HTTP endpoints).
func RegisterStreamRoutes(r gin.IRouter, stream *controllers.StreamController) {
	r.GET("/ws", stream.HandleWebSocket)
}
