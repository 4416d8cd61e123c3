// ABOUTME: Backup command for writing a dated snapshot and pruning old ones
// ABOUTME: Uses the configured backup directory and retention unless overridden

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a backup snapshot now",
	Long:  "Write today's backup snapshot to the backup directory and prune all but the newest --keep files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.GetBackupDir()
		if cmd.Flags().Changed("dir") {
			dir, _ = cmd.Flags().GetString("dir")
		}
		keep := cfg.BackupKeep
		if cmd.Flags().Changed("keep") {
			keep, _ = cmd.Flags().GetInt("keep")
		}
		if keep < 1 {
			return fmt.Errorf("--keep must be at least 1")
		}

		path, err := backup.Write(cmd.Context(), store, dir, time.Now())
		if err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}
		fmt.Printf("%s %s\n", green("✓"), path)

		removed, err := backup.Prune(dir, keep)
		if err != nil {
			return fmt.Errorf("backup written but pruning failed: %w", err)
		}
		for _, p := range removed {
			fmt.Printf("  %s %s\n", faint("removed"), filepath.Base(p))
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List backup files, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := backup.List(cfg.GetBackupDir())
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}
		if len(files) == 0 {
			fmt.Println("No backups found")
			return nil
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupListCmd)

	backupCmd.Flags().String("dir", "", "backup directory (default: <data dir>/backups)")
	backupCmd.Flags().Int("keep", 0, "number of backups to keep (default: backup_keep)")
}
