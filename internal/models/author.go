// ABOUTME: Author model with the denormalized post counter and user curation fields
// ABOUTME: Also holds the author ordering used by every list view

package models

// Author is a captured author. TweetCount mirrors the number of stored
// posts by Handle. Starred and Notes are user-owned and survive recaptures.
type Author struct {
	Handle      string `json:"handle" db:"handle"`
	DisplayName string `json:"displayName" db:"display_name"`
	AvatarURL   string `json:"avatarUrl" db:"avatar_url"`
	LastSeen    string `json:"lastSeen" db:"last_seen"`
	TweetCount  int64  `json:"tweetCount" db:"tweet_count"`
	Starred     bool   `json:"starred" db:"starred"`
	Notes       string `json:"notes" db:"notes"`
}

// AuthorLess orders starred authors first, then by post count descending,
// then by handle.
func AuthorLess(a, b *Author) bool {
	if a.Starred != b.Starred {
		return a.Starred
	}
	if a.TweetCount != b.TweetCount {
		return a.TweetCount > b.TweetCount
	}
	return a.Handle < b.Handle
}

// MergeAuthor combines an existing author with an imported one. Existing
// display fields win when populated, counts take the larger value, a star on
// either side is kept, and existing notes win over imported ones.
func MergeAuthor(existing, incoming *Author) *Author {
	merged := *existing
	if merged.DisplayName == "" {
		merged.DisplayName = incoming.DisplayName
	}
	if merged.AvatarURL == "" {
		merged.AvatarURL = incoming.AvatarURL
	}
	if incoming.LastSeen > merged.LastSeen {
		merged.LastSeen = incoming.LastSeen
	}
	if incoming.TweetCount > merged.TweetCount {
		merged.TweetCount = incoming.TweetCount
	}
	merged.Starred = existing.Starred || incoming.Starred
	if merged.Notes == "" {
		merged.Notes = incoming.Notes
	}
	return &merged
}
