package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"morsel/internal/config"
	"morsel/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger     = zap.NewNop()
	cfg        *config.Config
	configPath string
	logLevel   string
)

// errNothingToDo makes the process exit non-zero when a run had no work.
var errNothingToDo = errors.New("nothing to do")

var rootCmd = &cobra.Command{
	Use:           "morsel",
	Short:         "morsel - turns links mailed to an inbox into a daily podcast",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		return err
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default $MORSEL_CONFIG or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(pollCmd, digestCmd, pruneCmd, feedCmd, queueCmd, episodesCmd, inboxesCmd, serveCmd)

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
