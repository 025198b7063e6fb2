package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/motion-stream/internal/config"
)

var (
	// errConfigExists is returned when init would overwrite a configuration file.
	errConfigExists = errors.New("configuration file already exists")

	// force allows overwriting an existing configuration file.
	force bool

	// initCmd writes a configuration file with default settings.
	initCmd = &cobra.Command{
		Use:   "init <source>",
		Short: "Write a default configuration file.",
		Long: `Writes a configuration file with default detection settings for the given OBS source.

The file is created at the --config path and is readable by the current user only,
as it may hold the obs-websocket password. An existing file is kept unless --force is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s: %w, use --force to overwrite", cfgPath, errConfigExists)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat settings: %w", err)
			}

			cfg := config.Default()
			cfg.SourceID = args[0]

			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", cfgPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
}
