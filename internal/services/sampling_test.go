package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/models"
	"ramwatch/internal/services/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSampler returns one scripted result per call and repeats the last
// one once the script runs out.
type scriptedSampler struct {
	mu      sync.Mutex
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	percent float64
	err     error
}

func (s *scriptedSampler) Sample(context.Context) (*models.MemorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	if r.err != nil {
		return nil, r.err
	}
	return models.NewMemorySnapshot(16<<30, 8<<30, 8<<30, 4<<30, r.percent, time.Now()), nil
}

// frameRecorder records every frame and cancels once it has seen stopAfter.
type frameRecorder struct {
	mu        sync.Mutex
	frames    []models.ChartFrame
	at        []time.Time
	stopAfter int
	cancel    context.CancelFunc
	delay     time.Duration
}

func (r *frameRecorder) Render(_ context.Context, frame models.ChartFrame) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	r.at = append(r.at, time.Now())
	if len(r.frames) >= r.stopAfter {
		r.cancel()
	}
	return nil
}

func runLoop(t *testing.T, loop *SamplingLoop, ctx context.Context) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("sampling loop did not stop")
	}
}

func TestSamplingLoop_AccumulatesAndRendersWholeSeries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler := &scriptedSampler{results: []scriptedResult{{percent: 10}, {percent: 20}, {percent: 30}}}
	recorder := &frameRecorder{stopAfter: 3, cancel: cancel}
	loop := NewSamplingLoop(sampler, nil, recorder, WithInterval(time.Millisecond))

	runLoop(t, loop, ctx)

	assert.Equal(t, []models.Point{{Tick: 1, PercentUsed: 10}, {Tick: 2, PercentUsed: 20}, {Tick: 3, PercentUsed: 30}}, loop.Series())
	require.Len(t, recorder.frames, 3)
	for i, frame := range recorder.frames {
		assert.Len(t, frame.Points, i+1, "render %d", i+1)
		assert.Equal(t, models.ChartTitle, frame.Title)
		assert.Equal(t, models.ChartXLabel, frame.XLabel)
		assert.Equal(t, models.ChartYLabel, frame.YLabel)
		assert.Equal(t, models.XScaleLinear, frame.XScale)
		require.NotNil(t, frame.Latest)
		assert.Equal(t, frame.Points[i].PercentUsed, frame.Latest.PercentUsed)
	}
}

func TestSamplingLoop_SkipsFailedSample(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler := &scriptedSampler{results: []scriptedResult{
		{percent: 41.5},
		{err: apperrors.ErrMetricsUnavailable},
		{percent: 43.25},
	}}
	recorder := &frameRecorder{stopAfter: 2, cancel: cancel}
	loop := NewSamplingLoop(sampler, nil, recorder, WithInterval(time.Millisecond))

	runLoop(t, loop, ctx)

	assert.Equal(t, []models.Point{{Tick: 1, PercentUsed: 41.5}, {Tick: 2, PercentUsed: 43.25}}, loop.Series())
	assert.Equal(t, 3, sampler.calls)
	require.Len(t, recorder.frames, 2)
	assert.Len(t, recorder.frames[1].Points, 2)
}

func TestSamplingLoop_RenderFailureKeepsPoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := mocks.NewMockRenderer(ctrl)
	gomock.InOrder(
		renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(errors.New("terminal gone")),
		renderer.EXPECT().Render(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, frame models.ChartFrame) error {
				assert.Len(t, frame.Points, 2)
				cancel()
				return nil
			}),
	)

	sampler := &scriptedSampler{results: []scriptedResult{{percent: 5}, {percent: 6}}}
	loop := NewSamplingLoop(sampler, nil, renderer, WithInterval(time.Millisecond))

	runLoop(t, loop, ctx)

	assert.Equal(t, []models.Point{{Tick: 1, PercentUsed: 5}, {Tick: 2, PercentUsed: 6}}, loop.Series())
}

func TestSamplingLoop_HungSamplerTimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	sampler := mocks.NewMockSampler(ctrl)
	gomock.InOrder(
		sampler.EXPECT().Sample(gomock.Any()).DoAndReturn(func(context.Context) (*models.MemorySnapshot, error) {
			<-release // ignores its context
			return nil, nil
		}),
		sampler.EXPECT().Sample(gomock.Any()).Return(models.NewMemorySnapshot(100, 50, 50, 50, 50, time.Now()), nil),
	)

	recorder := &frameRecorder{stopAfter: 1, cancel: cancel}
	loop := NewSamplingLoop(sampler, nil, recorder,
		WithInterval(time.Millisecond),
		WithSampleTimeout(20*time.Millisecond),
	)

	runLoop(t, loop, ctx)

	assert.Equal(t, []models.Point{{Tick: 1, PercentUsed: 50}}, loop.Series())
}

func TestSamplingLoop_DriftCorrectedCadence(t *testing.T) {
	const (
		interval = 25 * time.Millisecond
		ticks    = 10
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler := &scriptedSampler{results: []scriptedResult{{percent: 12}}}
	recorder := &frameRecorder{stopAfter: ticks, cancel: cancel, delay: 10 * time.Millisecond}
	loop := NewSamplingLoop(sampler, nil, recorder, WithInterval(interval))

	runLoop(t, loop, ctx)

	require.Len(t, recorder.at, ticks)
	span := recorder.at[ticks-1].Sub(recorder.at[0])
	// Uncorrected pauses would take (ticks-1) * 35ms.
	assert.GreaterOrEqual(t, span, (ticks-1)*interval-5*time.Millisecond)
	assert.Less(t, span, (ticks-1)*(interval+10*time.Millisecond)-20*time.Millisecond)
}

func TestSamplingLoop_StopsDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sampler := &scriptedSampler{results: []scriptedResult{{percent: 1}}}
	recorder := &frameRecorder{stopAfter: 1, cancel: func() {}}
	loop := NewSamplingLoop(sampler, nil, recorder, WithInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return loop.Len() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSamplingLoop_StepOutcomes(t *testing.T) {
	ctx := context.Background()
	okSampler := SamplerFunc(func(context.Context) (*models.MemorySnapshot, error) {
		return models.NewMemorySnapshot(100, 25, 75, 20, 75, time.Now()), nil
	})

	tests := []struct {
		name     string
		sampler  Sampler
		codec    Codec
		renderer Renderer
		outcome  string
		stage    apperrors.Stage
		sentinel error
	}{
		{
			name:    "ok",
			sampler: okSampler,
			outcome: OutcomeOK,
		},
		{
			name: "sampler error",
			sampler: SamplerFunc(func(context.Context) (*models.MemorySnapshot, error) {
				return nil, errors.New("no /proc/meminfo")
			}),
			outcome:  OutcomeMetricsUnavailable,
			stage:    apperrors.StageSample,
			sentinel: apperrors.ErrMetricsUnavailable,
		},
		{
			name: "nil snapshot",
			sampler: SamplerFunc(func(context.Context) (*models.MemorySnapshot, error) {
				return nil, nil
			}),
			outcome:  OutcomeMetricsUnavailable,
			stage:    apperrors.StageSample,
			sentinel: apperrors.ErrMetricsUnavailable,
		},
		{
			name:     "codec error",
			sampler:  okSampler,
			codec:    brokenCodec{},
			outcome:  OutcomeEncodingFailed,
			stage:    apperrors.StageEncode,
			sentinel: apperrors.ErrEncodingFailed,
		},
		{
			name:    "render error",
			sampler: okSampler,
			renderer: RendererFunc(func(context.Context, models.ChartFrame) error {
				return errors.New("closed pipe")
			}),
			outcome:  OutcomeRenderFailed,
			stage:    apperrors.StageRender,
			sentinel: apperrors.ErrRenderFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := NewSamplingLoop(tt.sampler, tt.codec, tt.renderer)
			loop.attempts = 7

			outcome, err := loop.step(ctx)
			assert.Equal(t, tt.outcome, outcome)
			if tt.sentinel == nil {
				assert.NoError(t, err)
				assert.Equal(t, 1, loop.Len())
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			var tickErr *apperrors.TickError
			require.ErrorAs(t, err, &tickErr)
			assert.Equal(t, uint64(7), tickErr.Attempt)
			assert.Equal(t, tt.stage, tickErr.Stage)
		})
	}
}

func TestPauseAfter(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    time.Duration
	}{
		{0, time.Second},
		{150 * time.Millisecond, 850 * time.Millisecond},
		{time.Second, 0},
		{1700 * time.Millisecond, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pauseAfter(time.Second, tt.elapsed), "elapsed %v", tt.elapsed)
	}
}

func TestBoundedCall(t *testing.T) {
	t.Run("returns value", func(t *testing.T) {
		v, err := boundedCall(context.Background(), time.Second, func(context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("stops waiting on deadline", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		start := time.Now()
		_, err := boundedCall(context.Background(), 10*time.Millisecond, func(context.Context) (int, error) {
			<-release
			return 0, nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("zero timeout calls directly", func(t *testing.T) {
		v, err := boundedCall(context.Background(), 0, func(ctx context.Context) (string, error) {
			_, hasDeadline := ctx.Deadline()
			assert.False(t, hasDeadline)
			return "direct", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "direct", v)
	})
}

type brokenCodec struct{}

func (brokenCodec) Encode(*models.MemorySnapshot) ([]byte, error) {
	return nil, errors.New("cannot encode")
}

func (brokenCodec) DecodePercent([]byte) (float64, error) { return 0, nil }
