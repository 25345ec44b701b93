package services

import (
	"context"
	"sync"
	"time"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/logging"
	"ramwatch/internal/models"
)

// Loop defaults.
const (
	DefaultInterval      = 1 * time.Second
	DefaultSampleTimeout = 800 * time.Millisecond
	DefaultRenderTimeout = 800 * time.Millisecond
)

// SamplingLoop samples memory on a fixed cadence, accumulates the percent
// used into a time series and hands the whole series to a renderer after
// every successful sample.
//
// The pause after each tick is the interval minus the time the tick took
// (clamped at zero), so the long-run cadence stays at one tick per interval
// even as rendering a longer series gets slower.
type SamplingLoop struct {
	sampler   Sampler
	codec     Codec
	renderer  Renderer
	logger    logging.Logger
	telemetry *Telemetry

	interval      time.Duration
	sampleTimeout time.Duration
	renderTimeout time.Duration
	now           func() time.Time

	attempts uint64

	mu     sync.RWMutex
	series models.TimeSeries
}

// LoopOption configures a SamplingLoop.
type LoopOption func(*SamplingLoop)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) LoopOption {
	return func(l *SamplingLoop) { l.interval = d }
}

// WithSampleTimeout bounds each Sample call.
func WithSampleTimeout(d time.Duration) LoopOption {
	return func(l *SamplingLoop) { l.sampleTimeout = d }
}

// WithRenderTimeout bounds each Render call.
func WithRenderTimeout(d time.Duration) LoopOption {
	return func(l *SamplingLoop) { l.renderTimeout = d }
}

// WithLogger sets the loop logger.
func WithLogger(logger logging.Logger) LoopOption {
	return func(l *SamplingLoop) { l.logger = logger }
}

// WithTelemetry records tick outcomes into t.
func WithTelemetry(t *Telemetry) LoopOption {
	return func(l *SamplingLoop) { l.telemetry = t }
}

// NewSamplingLoop creates a loop. A nil codec means JSONCodec and a nil
// renderer discards frames.
func NewSamplingLoop(sampler Sampler, codec Codec, renderer Renderer, opts ...LoopOption) *SamplingLoop {
	l := &SamplingLoop{
		sampler:       sampler,
		codec:         codec,
		renderer:      renderer,
		logger:        logging.NewNopLogger(),
		interval:      DefaultInterval,
		sampleTimeout: DefaultSampleTimeout,
		renderTimeout: DefaultRenderTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.codec == nil {
		l.codec = JSONCodec{}
	}
	if l.renderer == nil {
		l.renderer = FanoutRenderer(nil)
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	return l
}

// Run ticks until ctx is cancelled and then returns ctx.Err(). Tick failures
// are logged and skipped; they never stop the loop.
func (l *SamplingLoop) Run(ctx context.Context) error {
	l.logger.Info("sampling loop started", logging.Duration("interval", l.interval))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := l.now()
		l.tick(ctx, started)

		wait := time.NewTimer(pauseAfter(l.interval, l.now().Sub(started)))
		select {
		case <-ctx.Done():
			wait.Stop()
			l.logger.Info("sampling loop stopped", logging.Uint64("attempts", l.attempts), logging.Int("points", l.Len()))
			return ctx.Err()
		case <-wait.C:
		}
	}
}

// Series returns a copy of the accumulated points.
func (l *SamplingLoop) Series() []models.Point {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.series.Snapshot()
}

// Len returns the number of accumulated points.
func (l *SamplingLoop) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.series.Len()
}

func (l *SamplingLoop) tick(ctx context.Context, started time.Time) {
	l.attempts++

	outcome, err := l.step(ctx)
	l.telemetry.ObserveTick(outcome, l.now().Sub(started))

	if err != nil && ctx.Err() == nil {
		l.logger.Warn("tick skipped",
			logging.Uint64("attempt", l.attempts),
			logging.String("outcome", outcome),
			logging.Err(err),
		)
	}
}

// step runs sample, round trip, append and render for one tick.
func (l *SamplingLoop) step(ctx context.Context) (string, error) {
	snapshot, err := boundedCall(ctx, l.sampleTimeout, l.sampler.Sample)
	if err == nil && snapshot == nil {
		err = errNoSnapshot
	}
	if err != nil {
		return OutcomeMetricsUnavailable, l.tickError(apperrors.StageSample, apperrors.Mark(err, apperrors.ErrMetricsUnavailable))
	}

	percent, err := RoundTripPercent(l.codec, snapshot)
	if err != nil {
		return OutcomeEncodingFailed, l.tickError(apperrors.StageEncode, apperrors.Mark(err, apperrors.ErrEncodingFailed))
	}

	l.mu.Lock()
	l.series.Append(percent)
	points := l.series.Snapshot()
	l.mu.Unlock()

	l.telemetry.SetMemoryPercent(percent)
	l.telemetry.SetSeriesLength(len(points))

	frame := models.NewChartFrame(points, snapshot)
	_, err = boundedCall(ctx, l.renderTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.renderer.Render(ctx, frame)
	})
	if err != nil {
		return OutcomeRenderFailed, l.tickError(apperrors.StageRender, apperrors.Mark(err, apperrors.ErrRenderFailed))
	}
	return OutcomeOK, nil
}

func (l *SamplingLoop) tickError(stage apperrors.Stage, cause error) error {
	return &apperrors.TickError{Attempt: l.attempts, Stage: stage, Cause: cause}
}

// pauseAfter returns how long to wait after a tick that took elapsed so the
// next tick starts one interval after this one started.
func pauseAfter(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

var errNoSnapshot = apperrors.WrapError(apperrors.ErrMetricsUnavailable, "sampler returned no snapshot")

// boundedCall runs fn with a deadline and stops waiting when it expires,
// even if fn ignores its context. A timed-out fn keeps running in the
// background until it returns; its result is discarded.
func boundedCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	}
}
