package main

import (
	"fmt"

	"github.com/lawnchairsociety/wavecollapse/internal/config"
	"github.com/lawnchairsociety/wavecollapse/internal/logger"
	"github.com/spf13/cobra"
)

// rootOptions is shared by every subcommand. cfg is loaded before any
// subcommand runs.
type rootOptions struct {
	configPath string
	modules    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "wfc",
		Short: "Wave function collapse over rotatable modules",
		Long: `wfc fills lines, rings, square grids and hex regions with modules whose
edges must match, streaming the collapse over WebSocket or printing it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to config YAML file")
	rootCmd.PersistentFlags().StringVarP(&opts.modules, "modules", "m", "", "Module set YAML file (overrides modules.path)")

	rootCmd.AddCommand(
		newSolveCmd(opts),
		newTableCmd(opts),
		newRenderCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newWatchCmd(),
	)
	return rootCmd
}

// load reads the config file and initializes logging. A missing file
// means defaults.
func (o *rootOptions) load() error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", o.configPath, err)
	}
	if o.modules != "" {
		cfg.Modules.Path = o.modules
	}
	if err := logger.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.cfg = cfg
	return nil
}
