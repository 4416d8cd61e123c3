// ABOUTME: Post storage: idempotent capture with fill-only merge, deletion, paging, and recency
// ABOUTME: Primary writes adjust the author counter in the same transaction; token indexing follows commit

package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

func validatePost(p *models.Post) error {
	if p == nil || p.PostID == "" {
		return fmt.Errorf("%w: post id is required", ErrInvalidRecord)
	}
	if p.AuthorHandle == "" {
		return fmt.Errorf("%w: post %s has no author handle", ErrInvalidRecord, p.PostID)
	}
	return nil
}

// normalizePost canonicalizes the handle and timestamps and stamps CapturedAt.
func normalizePost(p *models.Post) {
	p.AuthorHandle = models.NormalizeHandle(p.AuthorHandle)
	p.Timestamp = timeutil.NormalizeTimestamp(p.Timestamp)
	if p.CapturedAt == "" {
		p.CapturedAt = timeutil.Now()
	} else {
		p.CapturedAt = timeutil.NormalizeTimestamp(p.CapturedAt)
	}
	if p.RepostedBy != nil {
		by := models.NormalizeHandle(*p.RepostedBy)
		p.RepostedBy = &by
	}
}

// StorePost captures p. A new post is inserted and its author's counter
// incremented. A known post only gains fields it was missing; populated
// fields and CapturedAt are never changed. A post with nothing new is a
// duplicate and writes nothing.
//
// The returned outcome's IndexErr is set if the post was stored but the
// search index could not be updated.
func (s *Store) StorePost(ctx context.Context, p *models.Post) (models.StoreOutcome, error) {
	if p != nil {
		normalizePost(p)
	}
	if err := validatePost(p); err != nil {
		return models.StoreOutcome{}, err
	}

	ctx, span := s.startSpan(ctx, "StorePost", attribute.String("post.id", p.PostID))
	var err error
	defer func() { endSpan(span, err) }()

	var (
		outcome models.StoreOutcome
		change  indexChange
	)
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := Get[models.Post](ctx, tx, Tweets, p.PostID)
		if err != nil {
			return err
		}

		if existing == nil {
			if err := Put(ctx, tx, Tweets, p); err != nil {
				return err
			}
			if err := adjustTweetCount(ctx, tx, p.AuthorHandle, 1); err != nil {
				return err
			}
			outcome.Inserted = true
			change = changeFor(p.PostID, "", p.SearchText())
			return nil
		}

		before := existing.SearchText()
		if !existing.MergeMissing(p) {
			return nil
		}
		if err := Put(ctx, tx, Tweets, existing); err != nil {
			return err
		}
		outcome.Updated = true
		change = changeFor(p.PostID, before, existing.SearchText())
		return nil
	})
	if err != nil {
		return models.StoreOutcome{}, fmt.Errorf("store post %s: %w", p.PostID, err)
	}

	if indexErr := s.applyIndexChanges(ctx, []indexChange{change}); indexErr != nil {
		s.logger.Warn("post stored but not indexed", "post", p.PostID, "err", indexErr)
		outcome.IndexErr = indexErr
	}
	return outcome, nil
}

// GetPost returns the post with id, or nil.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	return Get[models.Post](ctx, db, Tweets, id)
}

// DeletePost removes a post and decrements its author's counter. It returns
// the deleted post, or nil if there was nothing to delete.
func (s *Store) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	var deleted *models.Post
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := Get[models.Post](ctx, tx, Tweets, id)
		if err != nil || p == nil {
			return err
		}
		if err := Delete(ctx, tx, Tweets, id); err != nil {
			return err
		}
		if err := adjustTweetCount(ctx, tx, p.AuthorHandle, -1); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete post %s: %w", id, err)
	}
	if deleted == nil {
		return nil, nil
	}

	if err := s.UnindexPost(ctx, deleted); err != nil {
		s.logger.Warn("post deleted but not unindexed", "post", id, "err", err)
	}
	return deleted, nil
}

// CountPosts returns the number of stored posts.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return 0, err
	}
	return Count(ctx, db, Tweets, Query{})
}

// CountPostsByAuthor returns the number of stored posts by handle.
func (s *Store) CountPostsByAuthor(ctx context.Context, handle string) (int, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return 0, err
	}
	return Count(ctx, db, Tweets, Query{Index: "byAuthor", Range: Only(models.NormalizeHandle(handle))})
}

// ListPostsByAuthor returns one page of handle's posts, newest first.
// A zero limit returns every post from offset on.
func (s *Store) ListPostsByAuthor(ctx context.Context, handle string, limit, offset int) ([]*models.Post, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	return Collect(Scan[models.Post](ctx, db, Tweets, Query{
		Index:     "byAuthorTime",
		Range:     Only(models.NormalizeHandle(handle)),
		Direction: Descending,
		Offset:    max(offset, 0),
		Limit:     max(limit, 0),
	}))
}

// AllPostsByAuthor returns every post by handle, newest first.
func (s *Store) AllPostsByAuthor(ctx context.Context, handle string) ([]*models.Post, error) {
	return s.ListPostsByAuthor(ctx, handle, 0, 0)
}

// RecentPosts returns up to limit posts by capture time, newest first,
// optionally only those captured at or after since. Without the capture-time
// index it falls back to sorting every post in memory.
func (s *Store) RecentPosts(ctx context.Context, limit int, since string) ([]*models.Post, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	since = timeutil.NormalizeTimestamp(since)

	indexed, err := hasObject(ctx, db, "index", "idx_tweets_captured_at")
	if err != nil {
		return nil, err
	}
	if indexed {
		q := Query{Index: "byCapturedAt", Direction: Descending, Limit: max(limit, 0)}
		if since != "" {
			q.Range = AtLeast(since)
		}
		return Collect(Scan[models.Post](ctx, db, Tweets, q))
	}

	s.logger.Warn("capture-time index missing, sorting in memory")
	all, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{}))
	if err != nil {
		return nil, err
	}
	return recentInMemory(all, limit, since), nil
}

// recentInMemory orders posts the way the capture-time index scan does.
func recentInMemory(posts []*models.Post, limit int, since string) []*models.Post {
	filtered := posts[:0]
	for _, p := range posts {
		if since == "" || p.CapturedAt >= since {
			filtered = append(filtered, p)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].CapturedAt != filtered[j].CapturedAt {
			return filtered[i].CapturedAt > filtered[j].CapturedAt
		}
		return filtered[i].PostID < filtered[j].PostID
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}
