// ABOUTME: Maintenance commands for rebuilding the search index, recounting authors, and vault stats
// ABOUTME: Repairs derived data from the stored posts

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from stored posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := store.Reindex(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reindex: %w", err)
		}
		fmt.Printf("Indexed %d search tokens\n", n)
		return nil
	},
}

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recompute every author's post count",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := store.RecountAuthors(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to recount authors: %w", err)
		}
		fmt.Printf("Recounted %d authors\n", n)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vault totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		if asJSON {
			return printJSON(st)
		}

		fmt.Printf("%s %s\n", bold("vault"), faint(store.Path()))
		fmt.Printf("  schema version  %d\n", st.SchemaVersion)
		fmt.Printf("  posts           %d\n", st.Posts)
		fmt.Printf("  authors         %d (%d starred)\n", st.Authors, st.Starred)
		fmt.Printf("  blocked         %d\n", st.Blocked)
		fmt.Printf("  blog posts      %d\n", st.BlogPosts)
		fmt.Printf("  index tokens    %d\n", st.Tokens)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(recountCmd)
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "print stats as JSON")
}
