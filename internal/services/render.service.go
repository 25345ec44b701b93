//go:generate mockgen -destination=mocks/mock_services.go -package=mocks ramwatch/internal/services Sampler,Renderer

package services

import (
	"context"
	"errors"

	"ramwatch/internal/models"
)

// Renderer redraws the chart from a complete frame. Render is called
// synchronously from the sampling loop once per successful tick.
type Renderer interface {
	Render(ctx context.Context, frame models.ChartFrame) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, frame models.ChartFrame) error

// Render calls f(ctx, frame).
func (f RendererFunc) Render(ctx context.Context, frame models.ChartFrame) error {
	return f(ctx, frame)
}

// FanoutRenderer hands every frame to each renderer in order. A failing
// renderer does not keep the frame from the others; all errors are joined.
type FanoutRenderer []Renderer

// Render implements Renderer.
func (f FanoutRenderer) Render(ctx context.Context, frame models.ChartFrame) error {
	var errs []error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.Render(ctx, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
