package services

import (
	"context"
	"sync"
	"time"

	"ramwatch/internal/models"
)

// HistoryRecorder keeps the most recent frame so HTTP handlers can read the
// series without touching the loop-owned accumulator. It is registered as
// one of the loop's renderers.
type HistoryRecorder struct {
	mu          sync.RWMutex
	frame       models.ChartFrame
	lastUpdated time.Time
}

// NewHistoryRecorder returns an empty recorder.
func NewHistoryRecorder() *HistoryRecorder {
	return &HistoryRecorder{frame: models.NewChartFrame([]models.Point{}, nil)}
}

// Render stores the frame. Frames are already private copies.
func (h *HistoryRecorder) Render(_ context.Context, frame models.ChartFrame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = frame
	h.lastUpdated = time.Now()
	return nil
}

// Frame returns the last recorded frame.
func (h *HistoryRecorder) Frame() models.ChartFrame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame
}

// Latest returns the snapshot behind the newest point, or nil before the
// first successful tick.
func (h *HistoryRecorder) Latest() *models.MemorySnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame.Latest
}

// LastUpdated returns when the last frame arrived.
func (h *HistoryRecorder) LastUpdated() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastUpdated
}
