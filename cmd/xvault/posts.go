// ABOUTME: Post commands for browsing, searching, counting, and deleting captured posts
// ABOUTME: Recent listings accept period names, durations, or timestamps for --since

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/timeutil"
)

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"p"},
	Short:   "Browse and manage captured posts",
}

var postsListCmd = &cobra.Command{
	Use:     "list <handle>",
	Aliases: []string{"ls"},
	Short:   "List posts by an author, newest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		posts, err := store.ListPostsByAuthor(cmd.Context(), args[0], limit, offset)
		if err != nil {
			return fmt.Errorf("failed to list posts: %w", err)
		}
		printPosts(os.Stdout, posts)
		return nil
	},
}

var postsShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show one post in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := store.GetPost(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get post: %w", err)
		}
		if p == nil {
			return fmt.Errorf("post not found: %s", args[0])
		}

		fmt.Printf("%s", bold("@"+p.AuthorHandle))
		if p.AuthorDisplayName != "" {
			fmt.Printf(" %s", p.AuthorDisplayName)
		}
		fmt.Println()
		if p.Timestamp != "" {
			fmt.Printf("%s\n", faint(displayTime(p.Timestamp)))
		}
		if p.URL != "" {
			fmt.Printf("%s\n", faint(p.URL))
		}
		fmt.Println(separator())
		fmt.Println(p.FullText)
		fmt.Println(separator())

		var stats []string
		for _, m := range []struct {
			label string
			v     *int64
		}{
			{"replies", p.ReplyCount},
			{"reposts", p.RetweetCount},
			{"likes", p.LikeCount},
			{"bookmarks", p.BookmarkCount},
			{"views", p.ViewCount},
		} {
			if m.v != nil {
				stats = append(stats, fmt.Sprintf("%d %s", *m.v, m.label))
			}
		}
		if len(stats) > 0 {
			fmt.Println(faint(strings.Join(stats, " · ")))
		}
		fmt.Printf("%s %s\n", faint("captured"), displayTime(p.CapturedAt))
		return nil
	},
}

var postsDeleteCmd = &cobra.Command{
	Use:     "delete <post-id>",
	Aliases: []string{"rm"},
	Short:   "Delete one post",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, remaining, err := captureSvc.DeletePost(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		if !deleted {
			fmt.Printf("Post %s was not in the vault\n", args[0])
		} else {
			fmt.Printf("Deleted post %s\n", args[0])
		}
		fmt.Printf("%d posts remaining\n", remaining)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <query...>",
	Aliases: []string{"s"},
	Short:   "Search captured posts",
	Long:    "Search post text, author handles, and display names. Every word must match.",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		posts, err := store.SearchPosts(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return fmt.Errorf("failed to search: %w", err)
		}
		printPosts(os.Stdout, posts)
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recently captured posts",
	Long: `Show the most recently captured posts.

--since accepts today, yesterday, week, month, a duration such as 36h,
or a timestamp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sinceArg, _ := cmd.Flags().GetString("since")

		since, err := timeutil.ParseSince(sinceArg)
		if err != nil {
			return fmt.Errorf("invalid --since %q: %w", sinceArg, err)
		}

		posts, err := store.RecentPosts(cmd.Context(), limit, since)
		if err != nil {
			return fmt.Errorf("failed to list recent posts: %w", err)
		}
		printPosts(os.Stdout, posts)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count [handle]",
	Short: "Count captured posts, overall or for one author",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			n   int
			err error
		)
		if len(args) == 1 {
			n, err = store.CountPostsByAuthor(cmd.Context(), args[0])
		} else {
			n, err = store.CountPosts(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to count posts: %w", err)
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.AddCommand(postsListCmd)
	postsCmd.AddCommand(postsShowCmd)
	postsCmd.AddCommand(postsDeleteCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(countCmd)

	postsListCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max posts to show")
	postsListCmd.Flags().IntP("offset", "o", 0, "number of posts to skip (for pagination)")
	searchCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max results")
	recentCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max posts to show")
	recentCmd.Flags().String("since", "", "only posts captured since this time")
}
