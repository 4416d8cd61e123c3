// ABOUTME: Block list commands for blocking, unblocking, and listing authors
// ABOUTME: Blocking removes everything already stored for the author

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/models"
)

var blockCmd = &cobra.Command{
	Use:   "block <handle>",
	Short: "Block an author and delete their captured data",
	Long: `Add an author to the block list and delete their posts, profile, and blog notes.

Future captures from a blocked author are skipped. Unblocking does not restore deleted data.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := captureSvc.Block(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to block author: %w", err)
		}
		fmt.Printf("Blocked @%s (removed %d posts, %d blog posts)\n", models.NormalizeHandle(args[0]), res.Posts, res.BlogPosts)
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <handle>",
	Short: "Remove an author from the block list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := captureSvc.Unblock(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to unblock author: %w", err)
		}
		fmt.Printf("Unblocked @%s\n", models.NormalizeHandle(args[0]))
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List blocked authors",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := store.ListBlocked(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list blocked authors: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No blocked authors")
			return nil
		}
		for _, b := range list {
			fmt.Printf("@%s %s\n", b.Handle, faint(displayTime(b.BlockedAt)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(blockedCmd)
}
