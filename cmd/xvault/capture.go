// ABOUTME: Capture command for storing posts from a JSON file or stdin
// ABOUTME: Accepts one post object or an array, applying the same policy as the browser extension

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/xvault/internal/capture"
	"github.com/harper/xvault/internal/models"
)

var captureCmd = &cobra.Command{
	Use:   "capture [file]",
	Short: "Capture posts from JSON",
	Long: `Capture one post object or an array of posts.

Reads from the given file, or from stdin when no file (or "-") is given.
Blocked authors are skipped, and --from-home applies the home-feed thresholds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromHome, _ := cmd.Flags().GetBool("from-home")

		var r io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		posts, err := decodePosts(data)
		if err != nil {
			return err
		}

		outcomes, err := captureSvc.IngestBatch(cmd.Context(), posts, capture.Options{FromHome: fromHome})
		for i, out := range outcomes {
			fmt.Printf("%s %s\n", faint(posts[i].PostID), outcomeLabel(out))
			if out.IndexErr != nil {
				fmt.Printf("  %s\n", faint("search index not updated: "+out.IndexErr.Error()))
			}
		}
		return err
	},
}

// decodePosts accepts a single object or an array.
func decodePosts(data []byte) ([]*models.Post, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no input")
	}
	if data[0] == '[' {
		var posts []*models.Post
		if err := json.Unmarshal(data, &posts); err != nil {
			return nil, fmt.Errorf("failed to parse posts: %w", err)
		}
		return posts, nil
	}
	var p models.Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse post: %w", err)
	}
	return []*models.Post{&p}, nil
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Bool("from-home", false, "treat posts as seen on the home timeline")
}
