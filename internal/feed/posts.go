// ABOUTME: Maps feed items to candidate posts and runs them through the capture service
// ABOUTME: Derives post ids from status links, detects reposts, and flattens HTML bodies to text

package feed

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/harper/xvault/internal/capture"
	"github.com/harper/xvault/internal/content"
	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

var (
	statusPath   = regexp.MustCompile(`^/([A-Za-z0-9_]+)/status(?:es)?/(\d+)`)
	repostPrefix = regexp.MustCompile(`^RT by @([A-Za-z0-9_]+):\s*`)
)

// Options control how feed items become posts.
type Options struct {
	// Handle is the account the feed belongs to. Items whose link names a
	// different author are attributed to that author instead.
	Handle string
	// FromHome applies the home-feed thresholds to every item.
	FromHome bool
}

// Result tallies one ingest run.
type Result struct {
	Seen       int `json:"seen"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Blocked    int `json:"blocked"`
	Filtered   int `json:"filtered"`
}

// ToPost converts one item. Items that yield no author are skipped with ok=false.
func ToPost(it Item, opts Options) (*models.Post, bool) {
	p := &models.Post{
		URL:        it.Link,
		CapturedAt: timeutil.Now(),
	}

	linkHandle, statusID := parseStatusLink(it.Link)
	p.PostID = statusID
	if p.PostID == "" {
		p.PostID = "feed-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(it.GUID)).String()
	}

	p.AuthorHandle = models.NormalizeHandle(linkHandle)
	if p.AuthorHandle == "" {
		p.AuthorHandle = models.NormalizeHandle(opts.Handle)
	}
	if strings.HasPrefix(it.Author, "@") {
		if p.AuthorHandle == "" {
			p.AuthorHandle = models.NormalizeHandle(it.Author)
		}
	} else {
		p.AuthorDisplayName = it.Author
	}
	if p.AuthorHandle == "" {
		return nil, false
	}

	title := it.Title
	if m := repostPrefix.FindStringSubmatch(title); m != nil {
		by := models.NormalizeHandle(m[1])
		p.IsRepost = true
		p.RepostedBy = &by
		title = title[len(m[0]):]
	}

	p.FullText = content.PlainText(it.Content)
	if p.FullText == "" {
		p.FullText = content.PlainText(title)
	}
	if it.PublishedAt != nil {
		p.Timestamp = timeutil.Format(*it.PublishedAt)
	} else {
		p.Timestamp = p.CapturedAt
	}
	if p.AuthorHandle == models.NormalizeHandle(opts.Handle) {
		p.AvatarURL = it.ImageURL
	}
	return p, true
}

func parseStatusLink(link string) (handle, id string) {
	u, err := url.Parse(link)
	if err != nil {
		return "", ""
	}
	m := statusPath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// Ingest fetches the feed at feedURL and captures every item. feedURL may
// also be a page that advertises its feed with a <link rel="alternate">.
func Ingest(ctx context.Context, svc *capture.Service, feedURL string, opts Options) (Result, error) {
	parsed, _, err := fetchFeed(ctx, feedURL)
	if err != nil {
		return Result{}, err
	}
	return IngestItems(ctx, svc, parsed.Items, opts)
}

// IngestItems captures already-parsed items in feed order.
func IngestItems(ctx context.Context, svc *capture.Service, items []Item, opts Options) (Result, error) {
	var r Result
	for _, it := range items {
		p, ok := ToPost(it, opts)
		if !ok {
			continue
		}
		r.Seen++
		out, err := svc.Ingest(ctx, p, capture.Options{FromHome: opts.FromHome})
		if err != nil {
			return r, fmt.Errorf("ingest %s: %w", p.PostID, err)
		}
		switch {
		case out.Inserted:
			r.Inserted++
		case out.Blocked:
			r.Blocked++
		case out.Filtered:
			r.Filtered++
		default:
			r.Duplicates++
		}
	}
	return r, nil
}
