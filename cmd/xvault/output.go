// ABOUTME: Shared terminal formatting for posts, authors, and capture outcomes
// ABOUTME: Uses fatih/color for emphasis and keeps previews to a single line

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	star  = color.New(color.FgYellow).Sprint("★")
)

// preview flattens text onto one line and truncates it.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-1]) + "…"
}

// displayTime renders a stored timestamp in local time, or verbatim when unparseable.
func displayTime(ts string) string {
	t, err := timeutil.Parse(ts)
	if err != nil {
		return ts
	}
	return t.Local().Format(config.DateFormatShort)
}

func printPost(w io.Writer, p *models.Post) {
	fmt.Fprintf(w, "%s %s", faint(p.PostID), cyan("@"+p.AuthorHandle))
	if p.IsRepost && p.RepostedBy != nil {
		fmt.Fprintf(w, " %s", faint("reposted by @"+*p.RepostedBy))
	}
	if p.Timestamp != "" {
		fmt.Fprintf(w, " %s", faint(displayTime(p.Timestamp)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", preview(p.FullText, config.PreviewLength))
}

func printPosts(w io.Writer, posts []*models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts found")
		return
	}
	for _, p := range posts {
		printPost(w, p)
	}
}

func printAuthor(w io.Writer, a *models.Author) {
	marker := " "
	if a.Starred {
		marker = star
	}
	fmt.Fprintf(w, "%s %s", marker, bold("@"+a.Handle))
	if a.DisplayName != "" {
		fmt.Fprintf(w, " %s", a.DisplayName)
	}
	fmt.Fprintf(w, " %s\n", faint(fmt.Sprintf("(%d posts)", a.TweetCount)))
}

func outcomeLabel(out models.StoreOutcome) string {
	switch {
	case out.Inserted:
		return green("stored")
	case out.Updated:
		return "updated"
	case out.Blocked:
		return faint("blocked author")
	case out.Filtered:
		return faint("filtered by home-feed settings")
	default:
		return faint("duplicate")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func separator() string {
	return strings.Repeat("─", config.SeparatorWidth)
}
