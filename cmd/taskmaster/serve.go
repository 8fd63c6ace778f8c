package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskmaster/internal/bot"
	"taskmaster/internal/config"
	"taskmaster/internal/db"
	"taskmaster/internal/handlers"
	"taskmaster/internal/inbox"
	"taskmaster/internal/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Import pending Telegram tasks, then serve the API and web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close()

	database, err := db.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := inbox.New(cfg.InboxPath(), log).WithMetrics(m)
	log.Info("Checking for pending Telegram tasks")
	if n := in.Import(ctx, database); n > 0 {
		log.Infow("Imported tasks from Telegram", "count", n)
	} else {
		log.Info("No pending Telegram tasks")
	}

	botCfg := config.LoadBotConfig(cfg.BotConfigPath(), cfg.Bot)
	var wg sync.WaitGroup
	if botCfg.Active() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bot.New(botCfg, in, log).Run(ctx)
		}()
	} else {
		log.Infow("Telegram bot disabled",
			"enabled", botCfg.Enabled,
			"configured", botCfg.Configured(),
			"config_file", cfg.BotConfigPath(),
		)
	}

	h := handlers.New(database, in, botCfg, log)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h.Routes(cfg.Web.Dir, m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Starting TaskMaster server", "addr", "http://"+cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		stop()
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Server shutdown failed", "error", err)
	}
	wg.Wait()

	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	return nil
}
