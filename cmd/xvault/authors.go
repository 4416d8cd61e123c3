// ABOUTME: Author commands for listing, inspecting, starring, annotating, and deleting authors
// ABOUTME: Deleting an author cascades to their posts and blog notes

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/models"
)

var authorsCmd = &cobra.Command{
	Use:     "authors",
	Aliases: []string{"a", "users"},
	Short:   "Manage captured authors",
	Long:    "List, inspect, star, annotate, and delete captured authors",
}

var authorsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List authors",
	Long:    "List authors, starred first, then by number of captured posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		starredOnly, _ := cmd.Flags().GetBool("starred")
		limit, _ := cmd.Flags().GetInt("limit")

		authors, err := store.ListAuthors(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list authors: %w", err)
		}

		shown := 0
		for _, a := range authors {
			if starredOnly && !a.Starred {
				continue
			}
			if limit > 0 && shown >= limit {
				break
			}
			printAuthor(os.Stdout, a)
			shown++
		}
		if shown == 0 {
			fmt.Println("No authors found")
		}
		return nil
	},
}

var authorsShowCmd = &cobra.Command{
	Use:   "show <handle>",
	Short: "Show an author and their latest posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		a, err := store.GetAuthor(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get author: %w", err)
		}
		if a == nil {
			return fmt.Errorf("author not found: %s", models.NormalizeHandle(args[0]))
		}

		printAuthor(os.Stdout, a)
		if a.AvatarURL != "" {
			fmt.Printf("  %s\n", faint(a.AvatarURL))
		}
		fmt.Printf("  %s %s\n", faint("last seen"), displayTime(a.LastSeen))
		if a.Notes != "" {
			fmt.Printf("\n%s\n", a.Notes)
		}

		posts, err := store.ListPostsByAuthor(ctx, a.Handle, limit, 0)
		if err != nil {
			return fmt.Errorf("failed to list posts: %w", err)
		}
		fmt.Println(separator())
		printPosts(os.Stdout, posts)
		return nil
	},
}

var authorsStarCmd = &cobra.Command{
	Use:   "star <handle>",
	Short: "Star an author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStarred(cmd, args[0], true)
	},
}

var authorsUnstarCmd = &cobra.Command{
	Use:   "unstar <handle>",
	Short: "Remove the star from an author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStarred(cmd, args[0], false)
	},
}

func setStarred(cmd *cobra.Command, handle string, starred bool) error {
	a, err := store.SetStarred(cmd.Context(), handle, starred)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}
	if a == nil {
		return fmt.Errorf("author not found: %s", models.NormalizeHandle(handle))
	}
	printAuthor(os.Stdout, a)
	return nil
}

var authorsNotesCmd = &cobra.Command{
	Use:   "notes <handle> [text...]",
	Short: "Set or clear notes on an author",
	Long:  "Replace an author's notes with the given text. With no text the notes are cleared.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes := strings.Join(args[1:], " ")
		a, err := store.UpdateNotes(cmd.Context(), args[0], notes)
		if err != nil {
			return fmt.Errorf("failed to update notes: %w", err)
		}
		if a == nil {
			return fmt.Errorf("author not found: %s", models.NormalizeHandle(args[0]))
		}
		if notes == "" {
			fmt.Printf("Cleared notes for @%s\n", a.Handle)
		} else {
			fmt.Printf("Updated notes for @%s\n", a.Handle)
		}
		return nil
	},
}

var authorsDeleteCmd = &cobra.Command{
	Use:     "delete <handle>",
	Aliases: []string{"rm"},
	Short:   "Delete an author with all their posts and blog notes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := captureSvc.DeleteAuthor(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete author: %w", err)
		}
		fmt.Printf("Deleted @%s: %d posts, %d blog posts\n", models.NormalizeHandle(args[0]), res.Posts, res.BlogPosts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authorsCmd)
	authorsCmd.AddCommand(authorsListCmd)
	authorsCmd.AddCommand(authorsShowCmd)
	authorsCmd.AddCommand(authorsStarCmd)
	authorsCmd.AddCommand(authorsUnstarCmd)
	authorsCmd.AddCommand(authorsNotesCmd)
	authorsCmd.AddCommand(authorsDeleteCmd)

	authorsListCmd.Flags().Bool("starred", false, "only show starred authors")
	authorsListCmd.Flags().IntP("limit", "n", 0, "max authors to show (0 for all)")
	authorsShowCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max posts to show")
}
