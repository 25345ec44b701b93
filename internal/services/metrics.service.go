package services

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/models"

	"github.com/shirou/gopsutil/v3/mem"
)

// Sampler produces one memory snapshot per call.
type Sampler interface {
	Sample(ctx context.Context) (*models.MemorySnapshot, error)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(ctx context.Context) (*models.MemorySnapshot, error)

// Sample calls f(ctx).
func (f SamplerFunc) Sample(ctx context.Context) (*models.MemorySnapshot, error) {
	return f(ctx)
}

// virtualMemoryFunc matches mem.VirtualMemoryWithContext.
type virtualMemoryFunc func(ctx context.Context) (*mem.VirtualMemoryStat, error)

// HostSampler reads system-wide virtual memory statistics from the OS.
type HostSampler struct {
	query virtualMemoryFunc
	now   func() time.Time
}

// NewHostSampler returns a sampler backed by gopsutil.
func NewHostSampler() *HostSampler {
	return &HostSampler{
		query: mem.VirtualMemoryWithContext,
		now:   time.Now,
	}
}

// Sample returns the current memory usage. Any failure of the host query,
// including an unsupported platform, is reported as ErrMetricsUnavailable and
// no snapshot is returned.
func (s *HostSampler) Sample(ctx context.Context) (*models.MemorySnapshot, error) {
	vm, err := s.query(ctx)
	if err != nil {
		return nil, apperrors.Mark(fmt.Errorf("virtual memory query: %w", err), apperrors.ErrMetricsUnavailable)
	}
	if vm == nil {
		return nil, fmt.Errorf("%w: virtual memory query returned no data", apperrors.ErrMetricsUnavailable)
	}
	if math.IsNaN(vm.UsedPercent) || vm.UsedPercent < 0 || vm.UsedPercent > 100 {
		return nil, fmt.Errorf("%w: host reported %v%% used", apperrors.ErrMetricsUnavailable, vm.UsedPercent)
	}

	return models.NewMemorySnapshot(
		vm.Total,
		vm.Available,
		vm.Used,
		vm.Free,
		vm.UsedPercent,
		s.now(),
	), nil
}
