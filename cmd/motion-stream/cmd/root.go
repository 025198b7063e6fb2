package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/motion-stream/internal/config"
	"github.com/oshokin/motion-stream/internal/service/detector"
	"github.com/oshokin/motion-stream/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// sourceID overrides the OBS source from the configuration file.
	sourceID string
	// debug enables per-sample motion statistics.
	debug bool
	// logLevel overrides the log level from the configuration file.
	logLevel string

	// rootCmd represents the base command running the motion detector.
	rootCmd = &cobra.Command{
		Use:   "motion-stream [source]",
		Short: "Start and stop an OBS stream on motion.",
		Long: `Watches an OBS source and streams only while something moves in it.

Takes a small screenshot of the source at a fixed interval through obs-websocket,
compares it with the previous one and judges the difference against a rolling baseline.
The stream is started on motion and stopped once no motion has been seen for the inactivity timeout.
The source name can be provided as argument or loaded from configuration file.

OBS must be running with its WebSocket server enabled; the connection is retried until it succeeds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use source argument if provided, otherwise rely on the flag or config.
			source := sourceID
			if len(args) > 0 {
				source = args[0]
			}

			// Only an explicitly passed path must exist.
			path := ""
			if cmd.Flags().Changed("config") {
				path = cfgPath
			}

			return detector.Run(ctx, &detector.Options{
				ConfigPath: path,
				SourceID:   source,
				Debug:      debug,
				LogLevel:   logLevel,
			})
		},
	}
)

// Execute runs the motion-stream CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Runtime failures are not usage errors.
	rootCmd.SilenceUsage = true

	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&sourceID, "source", "s", "", "OBS source name, overrides source_id")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "log motion statistics for every sample")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
}
