// ABOUTME: Serve command running the local HTTP API for the browser extension
// ABOUTME: Also runs scheduled backups when a backup schedule is configured

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/api"
	"github.com/harper/xvault/internal/backup"
	"github.com/harper/xvault/internal/config"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Run the local HTTP API used by the browser extension and dashboard.

The listen address and allowed CORS origins come from the config file or
XVAULT_LISTEN / XVAULT_ALLOWED_ORIGINS. Scheduled backups run alongside the
server when backup_schedule is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := cfg.Listen
		if cmd.Flags().Changed("listen") {
			listen, _ = cmd.Flags().GetString("listen")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var sched *backup.Scheduler
		if cfg.BackupSchedule != "" {
			var err error
			sched, err = backup.NewScheduler(store, cfg.BackupSchedule, cfg.GetBackupDir(), cfg.BackupKeep, logger)
			if err != nil {
				return err
			}
			sched.Start()
		}

		srv := api.New(captureSvc, api.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Listen(listen)
		}()

		var serveErr error
		select {
		case serveErr = <-errCh:
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP shutdown incomplete", "err", err)
			}
		}

		if sched != nil {
			select {
			case <-sched.Stop().Done():
			case <-time.After(shutdownTimeout):
				logger.Warn("backup still running at shutdown")
			}
		}

		if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
			return fmt.Errorf("HTTP server error: %w", serveErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", config.DefaultListen, "address to listen on")
}
