package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	// Decoders for every screenshot format OBS can be asked for.
	_ "image/jpeg"
	_ "image/png"

	"github.com/mitchellh/go-ps"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/oshokin/motion-stream/internal/config"
	"github.com/oshokin/motion-stream/internal/domain/motion"
	"github.com/oshokin/motion-stream/internal/logger"
	"github.com/oshokin/motion-stream/internal/obs"
)

// OBSSource captures frames and controls the stream of one OBS instance.
// It implements both FrameProvider and stream.Actuator.
type OBSSource struct {
	// client talks obs-websocket.
	client *obs.Client
	// imageFormat is the screenshot encoding requested from OBS.
	imageFormat string
	// processes lists local processes for the connection hint.
	processes func() ([]ps.Process, error)
	// hinted is set once the connection hint has been logged.
	hinted bool
}

// NewOBSSource creates a disconnected source for the OBS instance configured in cfg.
func NewOBSSource(cfg *config.Config) (*OBSSource, error) {
	client, err := obs.NewClient(
		cfg.OBSAddress,
		obs.WithPassword(cfg.OBSPassword),
		obs.WithCallTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create obs client: %w", err)
	}

	return &OBSSource{
		client:      client,
		imageFormat: cfg.ImageFormat,
		processes:   ps.Processes,
	}, nil
}

// Connect opens the obs-websocket session and logs whether the stream output is active.
func (s *OBSSource) Connect(ctx context.Context) error {
	logger.InfoKV(ctx, "Attempting to connect to OBS", "address", s.client.Address())

	if err := s.client.Connect(ctx); err != nil {
		s.hint(ctx)

		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	logger.InfoKV(
		ctx,
		"Connected to OBS",
		"obs_websocket_version", s.client.ServerVersion(),
		"rpc_version", s.client.NegotiatedRPCVersion(),
	)

	status, err := s.client.GetStreamStatus(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Failed to query OBS stream status", "error", err)

		return nil
	}

	logger.InfoKV(ctx, "OBS stream status", "output_active", status.OutputActive)

	return nil
}

// CaptureFrame takes a screenshot of sourceID scaled to width x height.
func (s *OBSSource) CaptureFrame(ctx context.Context, sourceID string, width, height int) (*motion.Frame, error) {
	data, err := s.client.GetSourceScreenshot(ctx, &obs.ScreenshotRequest{
		SourceName:  sourceID,
		ImageFormat: s.imageFormat,
		ImageWidth:  width,
		ImageHeight: height,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	return DecodeFrame(data)
}

// Start starts the OBS stream output.
func (s *OBSSource) Start(ctx context.Context) error {
	if err := s.client.StartStream(ctx); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	return nil
}

// Stop stops the OBS stream output.
func (s *OBSSource) Stop(ctx context.Context) error {
	if err := s.client.StopStream(ctx); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}

	return nil
}

// Close ends the obs-websocket session.
func (s *OBSSource) Close() error {
	return s.client.Close()
}

// DecodeFrame decodes a jpeg, png, bmp or webp payload into a frame.
func DecodeFrame(data []byte) (*motion.Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	frame, err := motion.FrameFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return frame, nil
}

// hint logs once whether OBS runs locally, which tells a stopped OBS apart
// from a disabled or misconfigured WebSocket server.
func (s *OBSSource) hint(ctx context.Context) {
	if s.hinted || !isLocalAddress(s.client.Address()) {
		return
	}

	s.hinted = true

	running, err := obsRunning(s.processes)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)

		return
	}

	if running {
		logger.Warnf(ctx, "OBS is running, check that its WebSocket server is enabled on %s", s.client.Address())

		return
	}

	logger.Warnf(ctx, "OBS does not seem to be running on this machine")
}
