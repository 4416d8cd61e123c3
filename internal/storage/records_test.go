// ABOUTME: Tests for the generic record primitives and ordered, ranged, paged scans
// ABOUTME: Exercises key ranges over single and compound indexes in both directions

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/xvault/internal/models"
)

func TestRecords_PutGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	db, err := s.reader(ctx)
	require.NoError(t, err)

	missing, err := Get[models.BlockedAuthor](ctx, db, Blocked, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent keys are reported as nil, not an error")

	entry := &models.BlockedAuthor{Handle: "spam", BlockedAt: "2024-01-01T00:00:00.000Z"}
	require.NoError(t, Put(ctx, db, Blocked, entry))

	entry.BlockedAt = "2024-02-01T00:00:00.000Z"
	require.NoError(t, Put(ctx, db, Blocked, entry), "put replaces")

	got, err := Get[models.BlockedAuthor](ctx, db, Blocked, "spam")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-02-01T00:00:00.000Z", got.BlockedAt)

	n, err := Count(ctx, db, Blocked, Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, Delete(ctx, db, Blocked, "spam"))
	require.NoError(t, Delete(ctx, db, Blocked, "spam"), "deleting a missing key is fine")

	got, err = Get[models.BlockedAuthor](ctx, db, Blocked, "spam")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func seedTimeline(t *testing.T, s *Store) {
	t.Helper()
	posts := []*models.Post{
		testPost("a1", "alice", "first", "2024-01-01T00:00:00Z"),
		testPost("a2", "alice", "second", "2024-01-02T00:00:00Z"),
		testPost("a3", "alice", "third", "2024-01-03T00:00:00Z"),
		testPost("b1", "bob", "bob one", "2024-01-02T12:00:00Z"),
		testPost("b2", "bob", "bob two", "2024-01-04T00:00:00Z"),
	}
	for _, p := range posts {
		capture(t, s, p)
	}
}

func TestScan_CompoundIndexRange(t *testing.T) {
	s := newTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()
	db, err := s.reader(ctx)
	require.NoError(t, err)

	asc, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{Index: "byAuthorTime", Range: Only("alice")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, postIDs(asc))

	desc, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{
		Index: "byAuthorTime", Range: Only("alice"), Direction: Descending,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2", "a1"}, postIDs(desc))

	window, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{
		Index: "byAuthorTime",
		Range: Between(
			[]any{"alice", "2024-01-02T00:00:00.000Z"},
			[]any{"alice", "2024-01-03T00:00:00.000Z"},
		),
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a3"}, postIDs(window))

	open := &KeyRange{
		Lower:     []any{"alice", "2024-01-02T00:00:00.000Z"},
		Upper:     []any{"alice", "2024-01-03T00:00:00.000Z"},
		LowerOpen: true,
	}
	exclusive, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{Index: "byAuthorTime", Range: open}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, postIDs(exclusive))
}

func TestScan_Paging(t *testing.T) {
	s := newTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()
	db, err := s.reader(ctx)
	require.NoError(t, err)

	q := Query{Index: "byTimestamp", Direction: Descending, Limit: 2, Offset: 1}
	page, err := Collect(Scan[models.Post](ctx, db, Tweets, q))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "b1"}, postIDs(page))

	tail, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{Index: "byTimestamp", Offset: 3}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "b2"}, postIDs(tail), "offset without a limit runs to the end")
}

func TestScan_IsRestartableAndStopsEarly(t *testing.T) {
	s := newTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()
	db, err := s.reader(ctx)
	require.NoError(t, err)

	seq := Scan[models.Post](ctx, db, Tweets, Query{})

	var first []string
	for p, err := range seq {
		require.NoError(t, err)
		first = append(first, p.PostID)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a1", "a2"}, first)

	all, err := Collect(seq)
	require.NoError(t, err)
	assert.Len(t, all, 5, "ranging again re-runs the query")
}

func TestScan_UnknownIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	db, err := s.reader(ctx)
	require.NoError(t, err)

	_, err = Collect(Scan[models.Post](ctx, db, Tweets, Query{Index: "byNothing"}))
	assert.Error(t, err)
}

func TestCount_Prefix(t *testing.T) {
	s := newTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()
	db, err := s.reader(ctx)
	require.NoError(t, err)

	n, err := Count(ctx, db, Tweets, Query{Range: Prefix("a")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = Count(ctx, db, Tweets, Query{Index: "byAuthor", Range: Only("bob")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestKeyRange_TupleSQL(t *testing.T) {
	b, err := Tweets.scanBuilder(Query{
		Index:     "byAuthorTime",
		Range:     Between([]any{"alice", "2024"}, []any{"alice", "2025"}),
		Direction: Descending,
		Limit:     10,
	})
	require.NoError(t, err)

	sql, args, err := b.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "(author_handle, timestamp) >= (?, ?)")
	assert.Contains(t, sql, "(author_handle, timestamp) <= (?, ?)")
	assert.Contains(t, sql, "ORDER BY author_handle DESC, timestamp DESC, post_id ASC")
	assert.Equal(t, []any{"alice", "2024", "alice", "2025"}, args)

	_, err = Tweets.scanBuilder(Query{Index: "byAuthor", Range: Only("a", "b")})
	assert.Error(t, err, "more bound values than index columns")
}
