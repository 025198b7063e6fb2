package detector

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/motion-stream/internal/config"
	"github.com/oshokin/motion-stream/internal/domain/motion"
	"github.com/oshokin/motion-stream/internal/logger"
)

// FrameProvider supplies still frames of a video source.
type FrameProvider interface {
	// Connect establishes the session; failures are wrapped in ErrConnection.
	Connect(ctx context.Context) error
	// CaptureFrame returns one frame of sourceID at the given size.
	CaptureFrame(ctx context.Context, sourceID string, width, height int) (*motion.Frame, error)
	// Close ends the session.
	Close() error
}

// Loop captures one frame per tick and feeds it to a Pipeline.
type Loop struct {
	// provider supplies the frames.
	provider FrameProvider
	// pipeline processes the frames.
	pipeline *Pipeline
	// sourceID names the captured source.
	sourceID string
	// width is the requested frame width.
	width int
	// height is the requested frame height.
	height int
	// interval is the period between two captures.
	interval time.Duration
	// retryDelay is the wait between two connection attempts.
	retryDelay time.Duration
	// captureTimeout bounds one capture.
	captureTimeout time.Duration
}

// NewLoop creates a loop capturing the source configured in cfg.
func NewLoop(provider FrameProvider, pipeline *Pipeline, cfg *config.Config) *Loop {
	return &Loop{
		provider:       provider,
		pipeline:       pipeline,
		sourceID:       cfg.SourceID,
		width:          cfg.ImageWidth,
		height:         cfg.ImageHeight,
		interval:       cfg.SampleInterval,
		retryDelay:     cfg.ConnectionRetryDelay,
		captureTimeout: cfg.RequestTimeout,
	}
}

// Run connects the provider and processes frames until ctx is cancelled.
// On return the inactivity timer is cancelled and the provider is closed.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.pipeline.Close()

		if err := l.provider.Close(); err != nil {
			logger.WarnKV(ctx, "Failed to close frame provider", "error", err)
		}
	}()

	if err := ConnectWithRetry(ctx, l.provider, l.retryDelay); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Stopping motion detection")

			return nil
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick captures and processes one frame. Failures skip the tick.
func (l *Loop) tick(ctx context.Context) {
	captureCtx, cancel := context.WithTimeout(ctx, l.captureTimeout)
	defer cancel()

	frame, err := l.provider.CaptureFrame(captureCtx, l.sourceID, l.width, l.height)
	if err != nil {
		if ctx.Err() == nil {
			logger.WarnKV(ctx, "Could not get source screenshot", "error", err)
		}

		return
	}

	if _, err = l.pipeline.Process(ctx, frame); err != nil {
		logger.WarnKV(ctx, "Skipping frame", "error", err)
	}
}

// ConnectWithRetry calls provider.Connect immediately, then every delay until
// it succeeds. It only gives up when ctx is done and returns ctx.Err() then.
func ConnectWithRetry(ctx context.Context, provider FrameProvider, delay time.Duration) error {
	// attempt tries once to connect, returns true on success.
	attempt := func() bool {
		err := provider.Connect(ctx)
		if err == nil {
			return true
		}

		logger.ErrorKV(ctx, "Failed to connect, retrying", "retry_in", delay, "error", err)

		return false
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Attempt immediately before starting retry loop.
	if attempt() {
		return nil
	}

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if attempt() {
				return nil
			}
		}
	}
}
