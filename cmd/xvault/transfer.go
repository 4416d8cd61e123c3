// ABOUTME: Export and import commands for whole-vault JSON snapshots
// ABOUTME: Snapshots use the browser extension's backup format, so either side can restore the other

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the vault as a JSON snapshot",
	Long:  "Write every post, author, block-list entry, setting, and blog note to a file, or to stdout.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := store.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		data = append(data, '\n')

		if len(args) == 0 || args[0] == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d posts and %d authors to %s\n", len(snap.Tweets), len(snap.Users), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON snapshot",
	Long: `Import a JSON snapshot ("-" reads stdin).

By default the snapshot is merged: existing records win and only missing
ones are added. With --replace the vault is cleared first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		replace, _ := cmd.Flags().GetBool("replace")

		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		snap, err := storage.ParseSnapshot(data)
		if err != nil {
			return err
		}
		counts, err := store.Import(cmd.Context(), snap, !replace)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		mode := "Merged"
		if replace {
			mode = "Replaced vault with"
		}
		fmt.Printf("%s %d posts, %d authors, %d blocked, %d settings, %d blog posts\n",
			mode, counts.Tweets, counts.Users, counts.BlockedUsers, counts.Settings, counts.BlogPosts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("replace", false, "clear the vault before importing")
}
