package routes

import (
	"net/http"

	"ramwatch/internal/controllers"
	"ramwatch/internal/logging"
	"ramwatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Dependencies are the handlers and policies the router is built from.
// Stream may be nil when no token secret is available.
type Dependencies struct {
	Memory  *controllers.MemoryController
	History *controllers.HistoryController
	Stream  *controllers.StreamController
	Metrics http.Handler

	Logger      logging.Logger
	Security    *middleware.SecurityLogger
	Whitelist   *middleware.IPWhitelist
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the gin engine for the local dashboard API.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Security == nil {
		deps.Security = middleware.NewSecurityLogger(deps.Logger)
	}

	r := gin.New()
	// ClientIP must come from the socket, not X-Forwarded-For, for the
	// whitelist to hold.
	if err := r.SetTrustedProxies(nil); err != nil {
		deps.Logger.Warn("disabling trusted proxies", logging.Err(err))
	}
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(deps.Logger),
		middleware.SecurityHeadersMiddleware(),
		middleware.IPWhitelistMiddleware(deps.Whitelist, deps.Security),
		middleware.RateLimitMiddleware(deps.RateLimiter, deps.Security),
	)

	RegisterMemoryRoutes(r, deps.Memory, deps.History)
	RegisterDebugRoutes(r, deps.Metrics)
	if deps.Stream != nil {
		RegisterStreamRoutes(r, deps.Stream)
	}
	return r
}
