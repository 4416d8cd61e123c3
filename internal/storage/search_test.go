// ABOUTME: Tests for tokenization and post search, including index loss and corruption fallbacks
// ABOUTME: Search must keep answering from a substring scan whenever the token index cannot

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "lowercases and splits", in: "Hello World", want: []string{"hello", "world"}},
		{name: "strips punctuation", in: "wow!!! so-cool, right?", want: []string{"wow", "socool", "right"}},
		{name: "keeps mentions and underscores", in: "ping @some_user", want: []string{"ping", "@some_user"}},
		{name: "drops short tokens", in: "a bb c dd", want: []string{"bb", "dd"}},
		{name: "dedupes in order", in: "go Go GO gopher go", want: []string{"go", "gopher"}},
		{name: "unicode letters", in: "Café naïve", want: []string{"café", "naïve"}},
		{name: "empty", in: "   ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTokenDiff(t *testing.T) {
	removed, added := tokenDiff([]string{"a1", "b2", "c3"}, []string{"b2", "d4"})
	assert.Equal(t, []string{"a1", "c3"}, removed)
	assert.Equal(t, []string{"d4"}, added)
}

func seedSearch(t *testing.T, s *Store) {
	t.Helper()
	capture(t, s, testPost("1", "alice", "Hello world from Go", "2024-01-01T00:00:00Z"))
	capture(t, s, testPost("2", "bob", "hello there", "2024-01-02T00:00:00Z"))
	capture(t, s, testPost("3", "carol", "Nothing to see", "2024-01-03T00:00:00Z"))
}

func TestSearchPosts_IntersectsTokens(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	both, err := s.SearchPosts(ctx, "hello", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, postIDs(both), "newest first")

	one, err := s.SearchPosts(ctx, "HELLO, World!", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, postIDs(one))

	byHandle, err := s.SearchPosts(ctx, "carol", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, postIDs(byHandle))

	limited, err := s.SearchPosts(ctx, "hello", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, postIDs(limited))
}

func TestSearchPosts_FallsBackToSubstring(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	partial, err := s.SearchPosts(ctx, "ell", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, postIDs(partial), "no token matches, so substring scan answers")

	none, err := s.SearchPosts(ctx, "zebra", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	blank, err := s.SearchPosts(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, blank)
}

func TestSearchPosts_MissingIndexTable(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	db, err := s.reader(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "DROP TABLE search_index")
	require.NoError(t, err)

	got, err := s.SearchPosts(ctx, "hello", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, postIDs(got))
}

func TestSearchPosts_CorruptEntry(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	db, err := s.reader(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "UPDATE search_index SET post_ids = 'not json' WHERE token = 'hello'")
	require.NoError(t, err)

	got, err := s.SearchPosts(ctx, "hello", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, postIDs(got))

	// A rebuild restores the damaged token.
	capture(t, s, testPost("4", "dave", "hello again", "2024-01-04T00:00:00Z"))
	tokens, err := s.Reindex(ctx)
	require.NoError(t, err)
	assert.Positive(t, tokens)

	got, err = s.SearchPosts(ctx, "hello", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "2", "1"}, postIDs(got))
}

func TestReindex_RebuildsFromPosts(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	db, err := s.reader(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "DELETE FROM search_index")
	require.NoError(t, err)

	_, err = s.Reindex(ctx)
	require.NoError(t, err)

	entry, err := Get[tokenEntry](ctx, db, SearchIndex, "hello")
	require.NoError(t, err)
	require.NotNil(t, entry)
	ids, err := entry.ids()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
}
