// ABOUTME: Tests for the capture service: block checks, home-feed filtering, and author upkeep
// ABOUTME: Runs capture flows end to end against a temporary SQLite vault

package capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, nil), store
}

func post(id, handle, text string) *models.Post {
	return &models.Post{
		PostID:            id,
		AuthorHandle:      handle,
		AuthorDisplayName: "Name " + models.NormalizeHandle(handle),
		FullText:          text,
		Timestamp:         "2024-01-01T00:00:00Z",
	}
}

func TestIngest_DuplicateCapture(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	out, err := svc.Ingest(ctx, post("1", "@alice", "hello"), Options{})
	require.NoError(t, err)
	assert.True(t, out.Inserted)

	out, err = svc.Ingest(ctx, post("1", "alice", "hello"), Options{})
	require.NoError(t, err)
	assert.True(t, out.Duplicate())

	alice, err := store.GetAuthor(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice)
	assert.Equal(t, int64(1), alice.TweetCount)
	assert.Equal(t, "Name alice", alice.DisplayName)
}

func TestIngest_RejectsIncompletePosts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, &models.Post{AuthorHandle: "alice"}, Options{})
	assert.True(t, errors.Is(err, ErrInvalidPost))

	_, err = svc.Ingest(ctx, nil, Options{})
	assert.True(t, errors.Is(err, ErrInvalidPost))
}

func TestBlock_AfterCapture(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(ctx, post(fmt.Sprint(i), "spammer", "buy now"), Options{})
		require.NoError(t, err)
	}
	_, err := svc.Ingest(ctx, post("keep", "alice", "real post"), Options{})
	require.NoError(t, err)

	res, err := svc.Block(ctx, "spammer")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Posts)
	assert.True(t, res.Author)

	out, err := svc.Ingest(ctx, post("new", "spammer", "buy again"), Options{})
	require.NoError(t, err)
	assert.True(t, out.Blocked)

	n, err := store.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := store.SearchPosts(ctx, "buy", 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, svc.Unblock(ctx, "spammer"))
	out, err = svc.Ingest(ctx, post("new", "spammer", "buy again"), Options{})
	require.NoError(t, err)
	assert.True(t, out.Inserted)
}

func TestIngest_HomeFeedThresholds(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	popular := post("1", "alice", "popular")
	likes := int64(500)
	popular.LikeCount = &likes

	out, err := svc.Ingest(ctx, popular, Options{FromHome: true})
	require.NoError(t, err)
	assert.True(t, out.Filtered, "home capture is off by default")

	require.NoError(t, store.SetHomeFeed(ctx, models.HomeFeedSettings{Enabled: true, MinLikes: 100}))

	quiet := post("2", "bob", "quiet")
	out, err = svc.Ingest(ctx, quiet, Options{FromHome: true})
	require.NoError(t, err)
	assert.True(t, out.Filtered)

	out, err = svc.Ingest(ctx, popular, Options{FromHome: true})
	require.NoError(t, err)
	assert.True(t, out.Inserted)

	out, err = svc.Ingest(ctx, post("3", "bob", "profile page capture"), Options{})
	require.NoError(t, err)
	assert.True(t, out.Inserted, "thresholds only apply to home-feed captures")
}

func TestDeletePost_ReportsRemaining(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, post("1", "alice", "one"), Options{})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, post("2", "alice", "two"), Options{})
	require.NoError(t, err)

	deleted, remaining, err := svc.DeletePost(ctx, "1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, remaining)

	alice, err := store.GetAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.TweetCount)
}

func TestIngest_ConcurrentNewAuthor(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Ingest(ctx, post(fmt.Sprintf("p%d", i), "newcomer", "burst"), Options{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	a, err := store.GetAuthor(ctx, "newcomer")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, int64(20), a.TweetCount)
}
