// ABOUTME: Feed ingestion command for pulling an account's RSS/Atom feed into the vault
// ABOUTME: Items go through the same capture policy as posts from the browser extension

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/feed"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"f"},
	Short:   "Ingest posts from RSS/Atom feeds",
}

var feedIngestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Fetch a feed and capture its items as posts",
	Long: `Fetch an RSS/Atom feed of an account, such as one served by a mirror
service, and capture each item as a post.

--handle names the account the feed belongs to; items that link to another
author's status are attributed to that author.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, _ := cmd.Flags().GetString("handle")
		fromHome, _ := cmd.Flags().GetBool("from-home")

		res, err := feed.Ingest(cmd.Context(), captureSvc, args[0], feed.Options{
			Handle:   handle,
			FromHome: fromHome,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest feed: %w", err)
		}

		fmt.Printf("%s %d new", green("✓"), res.Inserted)
		fmt.Printf(" %s\n", faint(fmt.Sprintf("(%d seen, %d duplicates, %d blocked, %d filtered)",
			res.Seen, res.Duplicates, res.Blocked, res.Filtered)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedIngestCmd)

	feedIngestCmd.Flags().String("handle", "", "account the feed belongs to")
	feedIngestCmd.Flags().Bool("from-home", false, "apply the home-feed thresholds to every item")
}
