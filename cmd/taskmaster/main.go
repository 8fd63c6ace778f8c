// Command taskmaster runs the TaskMaster server and its maintenance
// commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskmaster/internal/config"
	"taskmaster/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskmaster",
		Short:         "TaskMaster - folders, todos and notes with a Telegram inbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	root.AddCommand(newServeCmd(), newImportCmd(), newInboxCmd())
	return root
}

// setup loads configuration and builds the logger every command shares.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		log.Close()
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, log, nil
}
