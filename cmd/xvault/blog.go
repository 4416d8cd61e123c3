// ABOUTME: Blog commands for writing, listing, reading, editing, and deleting notes about authors
// ABOUTME: Notes are stored as markdown and rendered with glamour for reading

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/content"
	"github.com/harper/xvault/internal/models"
)

var blogCmd = &cobra.Command{
	Use:     "blog",
	Aliases: []string{"b"},
	Short:   "Manage blog notes about authors",
}

var blogAddCmd = &cobra.Command{
	Use:   "add <handle> <title>",
	Short: "Write a blog note about an author",
	Long: `Write a blog note about an author.

The body comes from --file, or stdin when --file is "-". HTML bodies can be
converted to markdown with --html.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readBody(cmd)
		if err != nil {
			return err
		}
		bp, err := store.CreateBlogPost(cmd.Context(), args[0], args[1], body)
		if err != nil {
			return fmt.Errorf("failed to create blog post: %w", err)
		}
		fmt.Printf("Created %s\n", bp.PostID)
		return nil
	},
}

var blogListCmd = &cobra.Command{
	Use:     "list [handle]",
	Aliases: []string{"ls"},
	Short:   "List blog notes, newest first",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle := ""
		if len(args) == 1 {
			handle = args[0]
		}
		posts, err := store.ListBlogPosts(cmd.Context(), handle)
		if err != nil {
			return fmt.Errorf("failed to list blog posts: %w", err)
		}
		if len(posts) == 0 {
			fmt.Println("No blog posts found")
			return nil
		}
		for _, bp := range posts {
			fmt.Printf("%s %s %s %s\n", faint(bp.PostID), cyan("@"+bp.Handle), bp.Title, faint(displayTime(bp.UpdatedAt)))
		}
		return nil
	},
}

var blogShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Read a blog note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bp, err := getBlogPost(cmd, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", bold(bp.Title))
		fmt.Printf("%s %s\n", cyan("@"+bp.Handle), faint(displayTime(bp.UpdatedAt)))
		fmt.Println(separator())

		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			fmt.Println(bp.Content)
			return nil
		}
		rendered, err := glamour.Render(bp.Content, "dark")
		if err != nil {
			fmt.Printf("%s\n", faint("(markdown rendering unavailable, showing plain text)"))
			fmt.Printf("\n%s\n", bp.Content)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

var blogEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a blog note's title or body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bp, err := getBlogPost(cmd, args[0])
		if err != nil {
			return err
		}

		title := bp.Title
		if cmd.Flags().Changed("title") {
			title, _ = cmd.Flags().GetString("title")
		}
		body := bp.Content
		if cmd.Flags().Changed("file") {
			if body, err = readBody(cmd); err != nil {
				return err
			}
		}

		updated, err := store.UpdateBlogPost(cmd.Context(), bp.PostID, title, body)
		if err != nil {
			return fmt.Errorf("failed to update blog post: %w", err)
		}
		if updated == nil {
			return fmt.Errorf("blog post not found: %s", bp.PostID)
		}
		fmt.Printf("Updated %s\n", updated.PostID)
		return nil
	},
}

var blogDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a blog note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.DeleteBlogPost(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete blog post: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func getBlogPost(cmd *cobra.Command, id string) (*models.BlogPost, error) {
	bp, err := store.GetBlogPost(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	if bp == nil {
		return nil, fmt.Errorf("blog post not found: %s", id)
	}
	return bp, nil
}

// readBody reads --file (stdin for "-") and converts HTML when --html is set.
func readBody(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("file")
	asHTML, _ := cmd.Flags().GetBool("html")
	if path == "" {
		return "", nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	body := strings.TrimSpace(string(data))
	if asHTML {
		body = content.ToMarkdown(body)
	}
	return body, nil
}

func init() {
	rootCmd.AddCommand(blogCmd)
	blogCmd.AddCommand(blogAddCmd)
	blogCmd.AddCommand(blogListCmd)
	blogCmd.AddCommand(blogShowCmd)
	blogCmd.AddCommand(blogEditCmd)
	blogCmd.AddCommand(blogDeleteCmd)

	for _, c := range []*cobra.Command{blogAddCmd, blogEditCmd} {
		c.Flags().StringP("file", "f", "", `read the body from a file ("-" for stdin)`)
		c.Flags().Bool("html", false, "convert an HTML body to markdown")
	}
	blogEditCmd.Flags().StringP("title", "t", "", "new title")
	blogShowCmd.Flags().Bool("raw", false, "print markdown without rendering")
}
