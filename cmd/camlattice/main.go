// Command camlattice creates, inspects and evaluates camera lattice rigs
// stored as YAML scene files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the state shared by every subcommand.
type app struct {
	verbose    bool
	configPath string

	cfg    Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: DefaultConfig(), logger: zap.NewNop()}
	root := &cobra.Command{
		Use:           "camlattice",
		Short:         "Camera lattice rigging tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML file with default camera, divisions and workers")

	root.AddCommand(
		a.createCmd(),
		a.translateCmd(),
		a.deformCmd(),
		a.infoCmd(),
		a.runCmd(),
		a.previewCmd(),
	)
	return root
}

// setup builds the logger and loads the config file.
func (a *app) setup() error {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	if a.configPath != "" {
		cfg, err := LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.logger.Debug("loaded config", zap.String("path", a.configPath))
	}
	return nil
}
