package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/motion-stream/internal/logger"
)

// Config holds the detector settings.
type Config struct {
	// OBSAddress is the host:port of the obs-websocket server.
	OBSAddress string `yaml:"obs_address"`
	// OBSPassword authenticates against obs-websocket; empty when auth is disabled.
	OBSPassword string `yaml:"obs_password"`
	// SourceID is the OBS source name to take screenshots of.
	SourceID string `yaml:"source_id"`
	// ImageWidth is the screenshot width requested from OBS.
	ImageWidth int `yaml:"image_width"`
	// ImageHeight is the screenshot height requested from OBS.
	ImageHeight int `yaml:"image_height"`
	// ImageFormat is the screenshot encoding requested from OBS (jpeg, png, bmp, webp).
	ImageFormat string `yaml:"image_format"`
	// MotionThreshold is the magnitude above which a sample counts as motion.
	// Higher is less sensitive.
	MotionThreshold float64 `yaml:"motion_threshold"`
	// SampleInterval is the period between two screenshots.
	SampleInterval time.Duration `yaml:"sample_interval"`
	// RollingWindowSize is the number of samples forming the adaptive baseline.
	RollingWindowSize int `yaml:"rolling_window_size"`
	// InactivityTimeout is how long motion must be absent before the stream is stopped.
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	// ConnectionRetryDelay is the wait between two OBS connection attempts.
	ConnectionRetryDelay time.Duration `yaml:"connection_retry_delay"`
	// RequestTimeout bounds every obs-websocket handshake and request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// DebugLogging emits per-tick statistics.
	DebugLogging bool `yaml:"debug_logging"`
	// LogLevel is the minimum level of emitted messages.
	LogLevel string `yaml:"log_level"`
	// LogFormat is either console or json.
	LogFormat string `yaml:"log_format"`
}

const (
	// DefaultConfigFilename is the default filename for the detector settings.
	DefaultConfigFilename = "motion-stream.yaml"

	// DefaultOBSAddress is where obs-websocket listens out of the box.
	DefaultOBSAddress = "127.0.0.1:4455"

	// DefaultImageWidth keeps the checked resolution around 1/10 of a 1080p source.
	DefaultImageWidth = 192

	// DefaultImageHeight keeps the checked resolution around 1/10 of a 1080p source.
	DefaultImageHeight = 108

	// DefaultImageFormat is the screenshot encoding requested by default.
	DefaultImageFormat = "jpeg"

	// DefaultMotionThreshold is the default magnitude threshold.
	DefaultMotionThreshold = 20

	// DefaultSampleInterval is the default period between screenshots.
	DefaultSampleInterval = 500 * time.Millisecond

	// DefaultRollingWindowSize is the default averaging depth.
	DefaultRollingWindowSize = 10

	// DefaultInactivityTimeout is the default cooldown before stopping the stream.
	DefaultInactivityTimeout = 5 * time.Minute

	// DefaultConnectionRetryDelay is the default wait between connection attempts.
	DefaultConnectionRetryDelay = 5 * time.Second

	// DefaultRequestTimeout is the default bound for obs-websocket calls.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSourceRequired is returned when no OBS source is configured.
	errSourceRequired = errors.New("source id must be provided")
	// errNegativeValue is returned when a numeric setting is below zero.
	errNegativeValue = errors.New("value must not be negative")
	// errUnsupportedFormat is returned for an unknown image or log format.
	errUnsupportedFormat = errors.New("unsupported format")
)

// Default returns a configuration populated with defaults for every field but SourceID.
func Default() *Config {
	return &Config{
		OBSAddress:           DefaultOBSAddress,
		ImageWidth:           DefaultImageWidth,
		ImageHeight:          DefaultImageHeight,
		ImageFormat:          DefaultImageFormat,
		MotionThreshold:      DefaultMotionThreshold,
		SampleInterval:       DefaultSampleInterval,
		RollingWindowSize:    DefaultRollingWindowSize,
		InactivityTimeout:    DefaultInactivityTimeout,
		ConnectionRetryDelay: DefaultConnectionRetryDelay,
		RequestTimeout:       DefaultRequestTimeout,
		LogLevel:             "info",
		LogFormat:            logger.FormatConsole,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read parses the configuration at path without validating it,
// so callers can apply overrides first.
// Keys missing from the file keep their defaults.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold the OBS password.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields, rejects invalid values and fills in defaults.
//
//nolint:cyclop // A flat list of checks reads better than helpers here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.SourceID) == "" {
		return errSourceRequired
	}

	if cfg.OBSAddress == "" {
		cfg.OBSAddress = DefaultOBSAddress
	}

	if _, _, err := net.SplitHostPort(cfg.OBSAddress); err != nil {
		return fmt.Errorf("invalid obs address: %w", err)
	}

	if cfg.ImageWidth < 0 || cfg.ImageHeight < 0 {
		return fmt.Errorf("image size: %w", errNegativeValue)
	}

	if cfg.ImageWidth == 0 {
		cfg.ImageWidth = DefaultImageWidth
	}

	if cfg.ImageHeight == 0 {
		cfg.ImageHeight = DefaultImageHeight
	}

	if cfg.ImageFormat == "" {
		cfg.ImageFormat = DefaultImageFormat
	}

	switch cfg.ImageFormat {
	case "jpeg", "jpg", "png", "bmp", "webp":
	default:
		return fmt.Errorf("image format %q: %w", cfg.ImageFormat, errUnsupportedFormat)
	}

	if cfg.MotionThreshold < 0 {
		return fmt.Errorf("motion threshold: %w", errNegativeValue)
	}

	if cfg.RollingWindowSize < 0 {
		return fmt.Errorf("rolling window size: %w", errNegativeValue)
	}

	if cfg.RollingWindowSize == 0 {
		cfg.RollingWindowSize = DefaultRollingWindowSize
	}

	// Set default durations if not specified.
	setDefaultDuration(&cfg.SampleInterval, DefaultSampleInterval)
	setDefaultDuration(&cfg.InactivityTimeout, DefaultInactivityTimeout)
	setDefaultDuration(&cfg.ConnectionRetryDelay, DefaultConnectionRetryDelay)
	setDefaultDuration(&cfg.RequestTimeout, DefaultRequestTimeout)

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, errUnsupportedFormat)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = logger.FormatConsole
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("log format %q: %w", cfg.LogFormat, errUnsupportedFormat)
	}

	return nil
}

// setDefaultDuration replaces a non-positive duration with def.
func setDefaultDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
