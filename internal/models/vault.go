// ABOUTME: Supporting vault records: block list, settings, blog notes, snapshots, and store outcomes
// ABOUTME: Snapshot JSON uses xvault's field names; imports also read the extension's older tweet keys

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlockedAuthor is a block-list entry. Blocked handles are never captured.
type BlockedAuthor struct {
	Handle    string `json:"handle" db:"handle"`
	BlockedAt string `json:"blockedAt" db:"blocked_at"`
}

// Setting is a raw key/value configuration row.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// BlogPost is a free-form note attached to an author handle.
type BlogPost struct {
	PostID    string `json:"postId" db:"post_id"`
	Handle    string `json:"handle" db:"handle"`
	Title     string `json:"title" db:"title"`
	Content   string `json:"content" db:"content"`
	CreatedAt string `json:"createdAt" db:"created_at"`
	UpdatedAt string `json:"updatedAt" db:"updated_at"`
}

// NewBlogPostID returns an id of the form post_<unix millis>_<random>.
func NewBlogPostID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("post_%d_%s", now.UnixMilli(), suffix)
}

// HomeFeedSettings controls capture from the home timeline.
type HomeFeedSettings struct {
	Enabled        bool  `json:"enabled"`
	MinLikes       int64 `json:"minLikes"`
	MinImpressions int64 `json:"minImpressions"`
}

// Admits reports whether a home-feed post passes the thresholds.
// A missing metric counts as zero.
func (h HomeFeedSettings) Admits(p *Post) bool {
	if !h.Enabled {
		return false
	}
	if h.MinLikes > 0 && deref(p.LikeCount) < h.MinLikes {
		return false
	}
	if h.MinImpressions > 0 && deref(p.ViewCount) < h.MinImpressions {
		return false
	}
	return true
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// AssistantSettings configures the optional summarization assistant.
type AssistantSettings struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// Snapshot is a full export of the vault.
type Snapshot struct {
	Version      int             `json:"version"`
	ExportedAt   string          `json:"exportedAt"`
	Tweets       []Post          `json:"tweets"`
	Users        []Author        `json:"users"`
	BlockedUsers []BlockedAuthor `json:"blockedUsers"`
	Settings     []Setting       `json:"settings"`
	BlogPosts    []BlogPost      `json:"blogPosts"`
}

// ImportCounts reports how many rows of each kind an import wrote.
type ImportCounts struct {
	Tweets       int `json:"tweets"`
	Users        int `json:"users"`
	BlockedUsers int `json:"blockedUsers"`
	Settings     int `json:"settings"`
	BlogPosts    int `json:"blogPosts"`
}

// StoreOutcome describes what a capture did. Exactly one of the flags is set,
// or none when the post was an unchanged duplicate.
type StoreOutcome struct {
	Inserted bool `json:"inserted"`
	Updated  bool `json:"updated,omitempty"`
	Blocked  bool `json:"blocked,omitempty"`
	Filtered bool `json:"filtered,omitempty"`

	// IndexErr is set when the post was stored but search-index maintenance failed.
	IndexErr error `json:"-"`
}

// Duplicate reports whether the post already existed and nothing changed.
func (o StoreOutcome) Duplicate() bool {
	return !o.Inserted && !o.Updated && !o.Blocked && !o.Filtered
}
