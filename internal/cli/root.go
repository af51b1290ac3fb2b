// Package cli implements the ascend command-line interface using Cobra.
// Every command opens the local state, performs one operation and exits;
// serve exposes the same operations over HTTP.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ascend-hq/ascend/internal/daemon"
)

var (
	verbose    bool
	jsonOutput bool

	cfg    daemon.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ascend",
	Short: "ascend - leadership habits, gamified",
	Long: `ascend turns daily leadership nudges into a game.
Complete nudges to earn XP and coins, keep your streak alive, collect badges,
open reward boxes and claim daily rewards.

State lives in $ASCEND_HOME (default ~/.ascend).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = daemon.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.Logging, cmd.Name() == "serve")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// newLogger builds the process logger. One-shot commands log warnings only
// unless --verbose is set; serve honors the configured level.
func newLogger(lc daemon.LoggingConfig, serving bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if lc.Development {
		config = zap.NewDevelopmentConfig()
	}
	level := zapcore.WarnLevel
	if serving {
		l, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}

// openDaemon wires the runtime over $ASCEND_HOME.
func openDaemon() (*daemon.Daemon, error) {
	return daemon.NewWithConfig(cfg, daemon.AscendHome(), logger)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	daemon.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
