package detector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/motion-stream/internal/config"
	"github.com/oshokin/motion-stream/internal/domain/motion"
	"github.com/oshokin/motion-stream/internal/logger"
	"github.com/oshokin/motion-stream/internal/service/stream"
)

// ClassifyFunc turns a sample and the full window holding it into a verdict.
type ClassifyFunc func(window *motion.Window, sample, threshold float64) motion.Verdict

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClassifier replaces motion.Classify.
func WithClassifier(classify ClassifyFunc) PipelineOption {
	return func(p *Pipeline) {
		if classify != nil {
			p.classify = classify
		}
	}
}

// Pipeline owns the detection state of one source.
// Frames and inactivity timer expiries are processed one at a time.
type Pipeline struct {
	// mu serializes the tick path and the timer path.
	mu sync.Mutex
	// differencer holds the previous frame.
	differencer motion.Differencer
	// window is the rolling baseline of difference samples.
	window *motion.Window
	// controller drives the stream actuator.
	controller *stream.Controller
	// classify produces verdicts once the window is full.
	classify ClassifyFunc
	// threshold is the magnitude above which a sample is motion.
	threshold float64
	// debug enables the per-sample statistics line.
	debug bool
}

// NewPipeline creates a pipeline driving actuator with the detection settings of cfg.
// ctx is used for logging and actuator calls made when the inactivity timer fires.
func NewPipeline(ctx context.Context, actuator stream.Actuator, cfg *config.Config, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		window:    motion.NewWindow(cfg.RollingWindowSize),
		classify:  motion.Classify,
		threshold: cfg.MotionThreshold,
		debug:     cfg.DebugLogging,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.controller = stream.NewController(actuator, cfg.InactivityTimeout, func(generation uint64) {
		p.expire(ctx, generation)
	})

	return p
}

// Process runs one frame through the pipeline. The verdict is nil while the
// baseline frame is recorded and while the window is still filling up.
// A frame whose size differs from the previous one is rejected with ErrDecode
// and leaves the state untouched.
func (p *Pipeline) Process(ctx context.Context, frame *motion.Frame) (*motion.Verdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sample, ok, err := p.differencer.Next(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if !ok {
		logger.Debugf(ctx, "Baseline frame recorded (%dx%d)", frame.Width, frame.Height)

		return nil, nil //nolint:nilnil // No verdict yet is not an error.
	}

	p.window.Push(sample)

	if !p.window.IsFull() {
		logger.Infof(ctx, "Accumulating averages (%d/%d)", p.window.Len(), p.window.Cap())

		return nil, nil //nolint:nilnil // No verdict yet is not an error.
	}

	verdict := p.classify(p.window, sample, p.threshold)

	if p.debug {
		logger.DebugKV(
			logger.WithForcedLevel(ctx, zapcore.DebugLevel),
			"Motion statistics",
			"stddev", verdict.StdDev,
			"current", verdict.Deviation,
			"magnitude", verdict.Magnitude,
		)
	}

	if verdict.IsMotion {
		ctx = logger.WithKV(ctx, "magnitude", verdict.Magnitude)
	}

	p.controller.Observe(ctx, verdict.IsMotion)

	return &verdict, nil
}

// State returns the stream controller state.
func (p *Pipeline) State() stream.State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.controller.State()
}

// Samples returns the rolling window contents, oldest first.
func (p *Pipeline) Samples() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.window.Samples()
}

// Close cancels the pending inactivity timer.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.controller.Close()
}

// expire handles a fired inactivity timer.
func (p *Pipeline) expire(ctx context.Context, generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.controller.Expire(ctx, generation) {
		return
	}

	// Recalibrate against the next burst of motion.
	p.window.Clear()
}
