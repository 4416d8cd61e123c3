// ABOUTME: Tests for vault models: recapture merging, author ordering, and home-feed thresholds
// ABOUTME: Confirms populated fields never regress and user curation survives merges

package models

import (
	"sort"
	"strings"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizeHandle(t *testing.T) {
	tests := map[string]string{
		"@alice":   "alice",
		" alice ":  "alice",
		"alice":    "alice",
		" @bob\n":  "bob",
		"":         "",
		"@":        "",
		"@@double": "@double",
		"@Alice":   "alice",
	}
	for in, want := range tests {
		if got := NormalizeHandle(in); got != want {
			t.Errorf("NormalizeHandle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPost_MergeMissing_FillsEmptyFields(t *testing.T) {
	stored := &Post{
		PostID:       "1",
		AuthorHandle: "alice",
		CapturedAt:   "2024-01-01T00:00:00.000Z",
	}
	incoming := &Post{
		PostID:            "1",
		AuthorHandle:      "alice",
		AuthorDisplayName: "Alice",
		FullText:          "hello world",
		CapturedAt:        "2024-06-01T00:00:00.000Z",
		LikeCount:         ptr(int64(12)),
	}

	if !stored.MergeMissing(incoming) {
		t.Fatal("expected merge to report a change")
	}
	if stored.FullText != "hello world" {
		t.Errorf("FullText = %q", stored.FullText)
	}
	if stored.AuthorDisplayName != "Alice" {
		t.Errorf("AuthorDisplayName = %q", stored.AuthorDisplayName)
	}
	if stored.LikeCount == nil || *stored.LikeCount != 12 {
		t.Errorf("LikeCount = %v", stored.LikeCount)
	}
	if stored.CapturedAt != "2024-01-01T00:00:00.000Z" {
		t.Errorf("CapturedAt must be preserved, got %q", stored.CapturedAt)
	}
}

func TestPost_MergeMissing_NeverOverwrites(t *testing.T) {
	stored := &Post{
		PostID:    "1",
		FullText:  "original",
		LikeCount: ptr(int64(5)),
	}
	incoming := &Post{
		PostID:    "1",
		FullText:  "edited",
		LikeCount: ptr(int64(500)),
	}

	if stored.MergeMissing(incoming) {
		t.Error("expected no change when every field is already populated")
	}
	if stored.FullText != "original" || *stored.LikeCount != 5 {
		t.Errorf("populated fields changed: %+v", stored)
	}
}

func TestPost_MergeMissing_CopiesCounts(t *testing.T) {
	stored := &Post{PostID: "1"}
	likes := int64(3)
	incoming := &Post{PostID: "1", LikeCount: &likes}
	stored.MergeMissing(incoming)
	likes = 99
	if *stored.LikeCount != 3 {
		t.Errorf("merge must copy the value, got %d", *stored.LikeCount)
	}
}

func TestPost_SearchText(t *testing.T) {
	p := &Post{FullText: "text", AuthorHandle: "alice", AuthorDisplayName: "Alice A"}
	got := p.SearchText()
	for _, want := range []string{"text", "alice", "Alice A"} {
		if !strings.Contains(got, want) {
			t.Errorf("SearchText() = %q, missing %q", got, want)
		}
	}
}

func TestAuthorLess(t *testing.T) {
	authors := []*Author{
		{Handle: "dave", TweetCount: 100},
		{Handle: "carol", TweetCount: 1, Starred: true},
		{Handle: "bob", TweetCount: 5},
		{Handle: "alice", TweetCount: 5},
		{Handle: "erin", TweetCount: 50, Starred: true},
	}
	sort.SliceStable(authors, func(i, j int) bool { return AuthorLess(authors[i], authors[j]) })

	want := []string{"erin", "carol", "dave", "alice", "bob"}
	for i, h := range want {
		if authors[i].Handle != h {
			t.Fatalf("position %d: got %s, want %s", i, authors[i].Handle, h)
		}
	}
}

func TestMergeAuthor(t *testing.T) {
	existing := &Author{Handle: "a", DisplayName: "Keep", TweetCount: 2, Notes: "mine", LastSeen: "2024-01-01T00:00:00.000Z"}
	incoming := &Author{Handle: "a", DisplayName: "Other", AvatarURL: "http://img", TweetCount: 9, Starred: true, Notes: "theirs", LastSeen: "2024-02-01T00:00:00.000Z"}

	merged := MergeAuthor(existing, incoming)

	if merged.DisplayName != "Keep" {
		t.Errorf("DisplayName = %q", merged.DisplayName)
	}
	if merged.AvatarURL != "http://img" {
		t.Errorf("AvatarURL = %q", merged.AvatarURL)
	}
	if merged.TweetCount != 9 {
		t.Errorf("TweetCount = %d", merged.TweetCount)
	}
	if !merged.Starred {
		t.Error("expected starred to be kept")
	}
	if merged.Notes != "mine" {
		t.Errorf("Notes = %q", merged.Notes)
	}
	if merged.LastSeen != "2024-02-01T00:00:00.000Z" {
		t.Errorf("LastSeen = %q", merged.LastSeen)
	}
	if existing.TweetCount != 2 {
		t.Error("MergeAuthor must not mutate its inputs")
	}
}

func TestHomeFeedSettings_Admits(t *testing.T) {
	post := &Post{LikeCount: ptr(int64(10)), ViewCount: ptr(int64(1000))}

	if (HomeFeedSettings{}).Admits(post) {
		t.Error("disabled settings must admit nothing")
	}
	if !(HomeFeedSettings{Enabled: true}).Admits(post) {
		t.Error("enabled settings without thresholds should admit")
	}
	if (HomeFeedSettings{Enabled: true, MinLikes: 11}).Admits(post) {
		t.Error("likes below threshold should be rejected")
	}
	if (HomeFeedSettings{Enabled: true, MinImpressions: 5000}).Admits(post) {
		t.Error("views below threshold should be rejected")
	}
	if (HomeFeedSettings{Enabled: true, MinLikes: 1}).Admits(&Post{}) {
		t.Error("missing metrics count as zero")
	}
}

func TestNewBlogPostID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewBlogPostID(now)
	if !strings.HasPrefix(id, "post_1700000000123_") {
		t.Errorf("unexpected id %q", id)
	}
	if id == NewBlogPostID(now) {
		t.Error("ids generated at the same instant must differ")
	}
}

func TestStoreOutcome_Duplicate(t *testing.T) {
	if !(StoreOutcome{}).Duplicate() {
		t.Error("zero outcome is a duplicate")
	}
	if (StoreOutcome{Inserted: true}).Duplicate() {
		t.Error("inserted outcome is not a duplicate")
	}
}
