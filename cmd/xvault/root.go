// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, builds the logger, and opens the vault for every subcommand

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/capture"
	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/logging"
	"github.com/harper/xvault/internal/storage"
)

// skipStoreAnnotation marks commands that run without opening the vault.
const skipStoreAnnotation = "xvault/skip-store"

var (
	cfgPath    string
	dbPath     string
	cfg        *config.Config
	logger     *log.Logger
	store      *storage.Store
	captureSvc *capture.Service
)

var rootCmd = &cobra.Command{
	Use:   "xvault",
	Short: "Local vault for captured social posts",
	Long: `
██╗  ██╗██╗   ██╗ █████╗ ██╗   ██╗██╗  ████████╗
╚██╗██╔╝██║   ██║██╔══██╗██║   ██║██║  ╚══██╔══╝
 ╚███╔╝ ██║   ██║███████║██║   ██║██║     ██║
 ██╔██╗ ╚██╗ ██╔╝██╔══██║██║   ██║██║     ██║
██╔╝ ██╗ ╚████╔╝ ██║  ██║╚██████╔╝███████╗██║
╚═╝  ╚═╝  ╚═══╝  ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝

Local vault for posts captured from your social feeds.

Capture posts, search them, curate authors, and expose
the vault over HTTP and MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipStoreAnnotation] == "true" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger = logging.New(os.Stderr, cfg.LogLevel)

		path := dbPath
		if path == "" {
			path = cfg.DBPath()
		}
		path = config.ExpandPath(path)

		store, err = storage.Open(cmd.Context(), path, storage.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to open vault: %w", err)
		}
		captureSvc = capture.New(store, logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close vault: %w", err)
			}
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "vault database path (default: ~/.local/share/xvault/xvault.db)")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: ~/.config/xvault/config.json)")
}
