// ABOUTME: Tests for settings, the block list, and blog posts
// ABOUTME: Includes the home-feed fallback to the older captureFromHome flag

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/xvault/internal/models"
)

func TestHomeFeed_Defaults(t *testing.T) {
	s := newTestStore(t)

	hf, err := s.HomeFeed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.HomeFeedSettings{}, hf)
}

func TestHomeFeed_LegacyFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, CaptureFromHomeKey, true))

	hf, err := s.HomeFeed(ctx)
	require.NoError(t, err)
	assert.True(t, hf.Enabled)
	assert.Zero(t, hf.MinLikes)
}

func TestSetHomeFeed_KeepsFlagInStep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetHomeFeed(ctx, models.HomeFeedSettings{Enabled: true, MinLikes: 50, MinImpressions: 1000}))
	require.NoError(t, s.SetCaptureFromHome(ctx, false))

	hf, err := s.HomeFeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.HomeFeedSettings{Enabled: false, MinLikes: 50, MinImpressions: 1000}, hf)

	raw, err := s.GetSetting(ctx, CaptureFromHomeKey)
	require.NoError(t, err)
	assert.JSONEq(t, "false", string(raw))

	err = s.SetHomeFeed(ctx, models.HomeFeedSettings{MinLikes: -1})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

func TestSettings_MalformedValueIsIgnored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, AssistantKey, "not an object"))
	a, err := s.Assistant(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AssistantSettings{}, a)

	want := models.AssistantSettings{Enabled: true, Provider: "local", Model: "small"}
	require.NoError(t, s.SetAssistant(ctx, want))
	a, err = s.Assistant(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, a)

	require.NoError(t, s.DeleteSetting(ctx, AssistantKey))
	raw, err := s.GetSetting(ctx, AssistantKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestBlockList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Block(ctx, "@spammer")
	require.NoError(t, err)
	assert.Equal(t, "spammer", first.Handle)

	again, err := s.Block(ctx, "spammer")
	require.NoError(t, err)
	assert.Equal(t, first.BlockedAt, again.BlockedAt, "re-blocking keeps the original time")

	_, err = s.Block(ctx, "another")
	require.NoError(t, err)

	list, err := s.ListBlocked(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "another", list[0].Handle)

	require.NoError(t, s.Unblock(ctx, "spammer"))
	blocked, err := s.IsBlocked(ctx, "spammer")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlogPosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateBlogPost(ctx, "alice", "First", "body")
	require.NoError(t, err)
	assert.Contains(t, created.PostID, "post_")

	db, err := s.reader(ctx)
	require.NoError(t, err)
	older := &models.BlogPost{
		PostID: "post_1_old", Handle: "alice", Title: "Old",
		CreatedAt: "2020-01-01T00:00:00.000Z", UpdatedAt: "2020-01-01T00:00:00.000Z",
	}
	require.NoError(t, Put(ctx, db, BlogPosts, older))

	list, err := s.ListBlogPosts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.PostID, list[0].PostID, "newest first")

	updated, err := s.UpdateBlogPost(ctx, created.PostID, "Renamed", "new body")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	missing, err := s.UpdateBlogPost(ctx, "post_nope", "x", "y")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.DeleteBlogPost(ctx, created.PostID))
	got, err := s.GetBlogPost(ctx, created.PostID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
