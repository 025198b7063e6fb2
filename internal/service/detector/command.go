package detector

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/motion-stream/internal/config"
	"github.com/oshokin/motion-stream/internal/logger"
	"github.com/oshokin/motion-stream/internal/version"
)

// Options configures the detector run.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// SourceID overrides the OBS source from config when specified.
	SourceID string

	// Debug enables the per-sample statistics line.
	Debug bool

	// LogLevel overrides the log level from config when specified.
	LogLevel string
}

// Run loads the settings and watches the configured source until ctx is cancelled.
// Only configuration errors are returned; OBS outages are retried or skipped.
func Run(ctx context.Context, opts *Options) error {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err = logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "motion-stream")
	ctx = logger.WithKV(ctx, "source", cfg.SourceID)

	source, err := NewOBSSource(cfg)
	if err != nil {
		return err
	}

	logger.InfoKV(
		ctx,
		"Starting motion detection",
		"version", version.Short(),
		"obs_address", cfg.OBSAddress,
		"image_size", fmt.Sprintf("%dx%d", cfg.ImageWidth, cfg.ImageHeight),
		"motion_threshold", cfg.MotionThreshold,
		"sample_interval", cfg.SampleInterval,
		"rolling_window_size", cfg.RollingWindowSize,
		"inactivity_timeout", cfg.InactivityTimeout,
	)

	pipeline := NewPipeline(ctx, source, cfg)

	return NewLoop(source, pipeline, cfg).Run(ctx)
}

// loadConfig reads the settings file, applies the command line overrides and validates the result.
// A missing default settings file is not an error when the source is given on the command line.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Read(opts.ConfigPath)

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && opts.ConfigPath == "" && opts.SourceID != "":
		cfg = config.Default()
	default:
		return nil, err
	}

	if opts.SourceID != "" {
		cfg.SourceID = opts.SourceID
	}

	if opts.Debug {
		cfg.DebugLogging = true
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
