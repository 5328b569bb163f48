package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/strata/internal/api"
	"github.com/newthinker/strata/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the strata API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	application, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	api.Version = Version
	server, err := application.Server()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if r := application.Router(); r != nil && cfg.Router.Cooldown > 0 {
		cleanupCtx, stopCleanup := context.WithCancel(context.Background())
		defer stopCleanup()
		r.StartCleanupRoutine(cleanupCtx, cfg.Router.Cooldown)
	}

	log.Info("starting strata server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	log.Info("shutting down strata server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
