package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snaptools/internal/config"
	"snaptools/internal/hashgen"
	"snaptools/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "snaptools",
	Short: "snaptools - everyday developer utilities",
	Long: `snaptools bundles small developer utilities behind one command:

  diff   compare two texts line by line
  gif    turn an image sequence into an animated GIF
  hash   compute MD5/SHA digests of text or files
  card   validate a payment card number (Luhn + network)

Settings are read from snaptools.yaml when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.DebugMode = true
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		if _, err := hashgen.ParseList(cfg.Hash.Algorithms); err != nil {
			return fmt.Errorf("invalid config %s: hash.algorithms: %w", configPath, err)
		}

		logger, err = logging.Initialize(cfg.Logging)
		if err != nil {
			return err
		}
		logging.Get(logging.CategoryBoot).Debug("command starting",
			zap.String("command", cmd.Name()),
			zap.String("config", configPath),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout (0 for none)")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(gifCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(cardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns a context cancelled on SIGINT/SIGTERM and, when
// limited is set, after the --timeout.
func commandContext(cmd *cobra.Command, limited bool) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if !limited || timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
