package controllers

import (
	"errors"
	"net/http"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/logging"
	"ramwatch/internal/services"

	"github.com/gin-gonic/gin"
)

// MemoryController serves the current memory snapshot.
type MemoryController struct {
	sampler services.Sampler
	logger  logging.Logger
}

// NewMemoryController creates a controller reading from sampler, usually a
// services.CachedSampler.
func NewMemoryController(sampler services.Sampler, logger logging.Logger) *MemoryController {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MemoryController{sampler: sampler, logger: logger}
}

// GetMemory returns the current snapshot, or 503 when the host cannot be
// queried.
func (mc *MemoryController) GetMemory(c *gin.Context) {
	memory, err := mc.sampler.Sample(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrMetricsUnavailable) {
			status = http.StatusServiceUnavailable
		}
		mc.logger.Warn("memory snapshot request failed", logging.Err(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, memory)
}
