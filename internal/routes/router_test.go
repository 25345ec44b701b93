package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ramwatch/internal/controllers"
	"ramwatch/internal/middleware"
	"ramwatch/internal/models"
	"ramwatch/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testRouter(stream *controllers.StreamController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	sampler := services.SamplerFunc(func(context.Context) (*models.MemorySnapshot, error) {
		return models.NewMemorySnapshot(100, 60, 40, 60, 40, time.Now()), nil
	})
	telemetry := services.NewTelemetry()
	telemetry.ObserveTick(services.OutcomeOK, time.Millisecond)
	security := middleware.NewSecurityLogger(nil)

	return NewRouter(Dependencies{
		Memory:      controllers.NewMemoryController(sampler, nil),
		History:     controllers.NewHistoryController(services.NewHistoryRecorder()),
		Stream:      stream,
		Metrics:     telemetry.Handler(),
		Security:    security,
		Whitelist:   middleware.NewIPWhitelist(nil),
		RateLimiter: middleware.NewRateLimiter(100, 100),
	})
}

func get(r http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	r := testRouter(nil)

	for _, path := range []string{"/api/memory", "/api/history", "/debug/metrics"} {
		rec := get(r, path, "127.0.0.1:5000")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
	}

	assert.Contains(t, get(r, "/debug/metrics", "127.0.0.1:5000").Body.String(), "ramwatch_ticks_total")
	assert.Equal(t, http.StatusNotFound, get(r, "/ws", "127.0.0.1:5000").Code, "no stream route without auth")
}

func TestNewRouter_RejectsRemoteClients(t *testing.T) {
	r := testRouter(nil)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/memory", "198.51.100.4:5000").Code)
}

func TestNewRouter_StreamRoute(t *testing.T) {
	auth, err := services.NewAuthService("0123456789abcdef0123456789abcdef", time.Hour)
	assert.NoError(t, err)
	stream := controllers.NewStreamController(services.NewWebSocketHub(nil), auth, services.NewHistoryRecorder(), middleware.NewSecurityLogger(nil), nil)

	rec := get(testRouter(stream), "/ws", "127.0.0.1:5000")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
