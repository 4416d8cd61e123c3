// ABOUTME: Post model representing one captured social-feed post
// ABOUTME: Handles handle normalization, search text extraction, and fill-only merging of recaptures

package models

import (
	"strings"
)

// Post is a captured post. PostID is the platform's identifier and is
// immutable once stored.
type Post struct {
	PostID            string  `json:"postId" db:"post_id"`
	AuthorHandle      string  `json:"authorHandle" db:"author_handle"`
	AuthorDisplayName string  `json:"authorDisplayName" db:"author_display_name"`
	FullText          string  `json:"fullText" db:"full_text"`
	Timestamp         string  `json:"timestamp" db:"timestamp"`    // canonical UTC, when the post was published
	CapturedAt        string  `json:"capturedAt" db:"captured_at"` // canonical UTC, when the vault first saw it
	URL               string  `json:"url" db:"url"`
	AvatarURL         string  `json:"avatarUrl" db:"avatar_url"`
	IsRepost          bool    `json:"isRepost" db:"is_repost"`
	RepostedBy        *string `json:"repostedBy" db:"reposted_by"`
	ReplyCount        *int64  `json:"replyCount,omitempty" db:"reply_count"`
	RetweetCount      *int64  `json:"retweetCount,omitempty" db:"retweet_count"`
	LikeCount         *int64  `json:"likeCount,omitempty" db:"like_count"`
	BookmarkCount     *int64  `json:"bookmarkCount,omitempty" db:"bookmark_count"`
	ViewCount         *int64  `json:"viewCount,omitempty" db:"view_count"`
}

// NormalizeHandle lowercases a handle and strips whitespace and a leading @.
// Handle comparison elsewhere is exact, so callers normalize before storing.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// SearchText is the text the token index is built from.
func (p *Post) SearchText() string {
	return p.FullText + " " + p.AuthorHandle + " " + p.AuthorDisplayName
}

// MergeMissing copies fields from incoming that are empty on p.
// Populated fields on p are never overwritten, and CapturedAt is left alone.
// It reports whether anything changed.
func (p *Post) MergeMissing(incoming *Post) bool {
	changed := false

	fillString := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}
	fillCount := func(dst **int64, src *int64) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
			changed = true
		}
	}

	fillString(&p.AuthorDisplayName, incoming.AuthorDisplayName)
	fillString(&p.FullText, incoming.FullText)
	fillString(&p.Timestamp, incoming.Timestamp)
	fillString(&p.URL, incoming.URL)
	fillString(&p.AvatarURL, incoming.AvatarURL)

	if p.RepostedBy == nil && incoming.RepostedBy != nil && *incoming.RepostedBy != "" {
		v := *incoming.RepostedBy
		p.RepostedBy = &v
		p.IsRepost = true
		changed = true
	}

	fillCount(&p.ReplyCount, incoming.ReplyCount)
	fillCount(&p.RetweetCount, incoming.RetweetCount)
	fillCount(&p.LikeCount, incoming.LikeCount)
	fillCount(&p.BookmarkCount, incoming.BookmarkCount)
	fillCount(&p.ViewCount, incoming.ViewCount)

	return changed
}
