package integration

import (
	"context"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/motion-stream/internal/config"
	"github.com/oshokin/motion-stream/internal/obs"
	"github.com/oshokin/motion-stream/internal/obs/obstest"
	"github.com/oshokin/motion-stream/internal/service/detector"
)

// writeConfig saves fast detection settings for the fake OBS at address.
func writeConfig(t *testing.T, address, password string) string {
	t.Helper()

	cfg := config.Default()
	cfg.OBSAddress = address
	cfg.OBSPassword = password
	cfg.SourceID = "CameraPic"
	cfg.ImageFormat = "png"
	cfg.ImageWidth = 16
	cfg.ImageHeight = 9
	cfg.SampleInterval = 20 * time.Millisecond
	cfg.RollingWindowSize = 3
	cfg.InactivityTimeout = 300 * time.Millisecond
	cfg.ConnectionRetryDelay = 50 * time.Millisecond
	cfg.RequestTimeout = time.Second
	cfg.LogLevel = "debug"

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return path
}

// TestDetector_StartsAndStopsStream runs the daemon against a fake OBS showing
// a still scene, a single change and a still scene again.
func TestDetector_StartsAndStopsStream(t *testing.T) {
	var shots atomic.Int64

	server := obstest.NewServer(t, obstest.WithPassword("123456"), obstest.WithScreenshot(
		func(req obs.ScreenshotRequest) (string, error) {
			// Four dark frames fill the window, then the scene lights up for good.
			var level uint8
			if shots.Add(1) > 4 {
				level = 50
			}

			gray := color.RGBA{R: level, G: level, B: level, A: 255}

			return obstest.PNGDataURL(obstest.SolidImage(req.ImageWidth, req.ImageHeight, gray)), nil
		},
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- detector.Run(ctx, &detector.Options{
			ConfigPath: writeConfig(t, server.Address(), "123456"),
			Debug:      true,
		})
	}()

	require.Eventually(t, server.Streaming, 5*time.Second, 10*time.Millisecond)

	// The scene stays still after the change, so the stream stops after the timeout.
	require.Eventually(t, func() bool {
		return !server.Streaming() && server.Requests(obs.RequestStopStream) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, server.Requests(obs.RequestStartStream))
	require.Equal(t, 1, server.Sessions())

	cancel()
	require.NoError(t, <-done)
}

// TestDetector_ReturnsOnCancelWhileOBSIsDown keeps retrying an unreachable OBS until cancelled.
func TestDetector_ReturnsOnCancelWhileOBSIsDown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := detector.Run(ctx, &detector.Options{
		ConfigPath: writeConfig(t, reservePort(t), ""),
	})
	require.NoError(t, err)
}

// TestDetector_RejectsInvalidConfig fails fast on a configuration without a source.
func TestDetector_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := config.Default()
	cfg.SourceID = "CameraPic"
	require.NoError(t, config.Save(path, cfg))

	err := detector.Run(context.Background(), &detector.Options{
		ConfigPath: path,
		LogLevel:   "loud",
	})
	require.Error(t, err)
}
