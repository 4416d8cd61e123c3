// ABOUTME: Author storage: upsert with recount, counter adjustment, curation, ranking, and cascade delete
// ABOUTME: Ranked listing uses the (starred, tweet_count) index and falls back to an identical in-memory sort

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

// CascadeResult counts what an author cascade removed.
type CascadeResult struct {
	Author    bool `json:"author"`
	Posts     int  `json:"posts"`
	BlogPosts int  `json:"blogPosts"`
}

// StoreAuthor creates or updates an author. Display fields take the incoming
// value when it is non-empty. Starred and Notes are always preserved.
//
// A new author's counter is computed by counting their stored posts. An
// existing author is recounted too unless skipCount is set, in which case
// the counter is left as is; callers that set skipCount keep the counter in
// step themselves.
func (s *Store) StoreAuthor(ctx context.Context, a *models.Author, skipCount bool) (*models.Author, bool, error) {
	if a == nil {
		return nil, false, fmt.Errorf("%w: author is required", ErrInvalidRecord)
	}
	handle := models.NormalizeHandle(a.Handle)
	if handle == "" {
		return nil, false, fmt.Errorf("%w: author handle is required", ErrInvalidRecord)
	}

	var (
		stored  *models.Author
		created bool
	)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := Get[models.Author](ctx, tx, Users, handle)
		if err != nil {
			return err
		}

		record := &models.Author{Handle: handle}
		if existing != nil {
			*record = *existing
		}
		if a.DisplayName != "" {
			record.DisplayName = a.DisplayName
		}
		if a.AvatarURL != "" {
			record.AvatarURL = a.AvatarURL
		}
		if a.LastSeen != "" {
			record.LastSeen = timeutil.NormalizeTimestamp(a.LastSeen)
		}
		if record.LastSeen == "" {
			record.LastSeen = timeutil.Now()
		}

		if existing == nil || !skipCount {
			n, err := Count(ctx, tx, Tweets, Query{Index: "byAuthor", Range: Only(handle)})
			if err != nil {
				return err
			}
			record.TweetCount = int64(n)
		}

		if err := Put(ctx, tx, Users, record); err != nil {
			return err
		}
		stored = record
		created = existing == nil
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store author %s: %w", handle, err)
	}
	return stored, created, nil
}

// adjustTweetCount shifts an author's counter by delta, clamping at zero.
// A missing author is left alone.
func adjustTweetCount(ctx context.Context, e execer, handle string, delta int) error {
	_, err := e.ExecContext(ctx,
		"UPDATE users SET tweet_count = MAX(0, tweet_count + ?) WHERE handle = ?", delta, handle)
	if err != nil {
		return fmt.Errorf("adjust tweet count for %s: %w", handle, err)
	}
	return nil
}

// AdjustTweetCount shifts handle's counter by delta without recounting.
// It returns the updated author, or nil if the author does not exist.
func (s *Store) AdjustTweetCount(ctx context.Context, handle string, delta int) (*models.Author, error) {
	var updated *models.Author
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := adjustTweetCount(ctx, tx, handle, delta); err != nil {
			return err
		}
		var err error
		updated, err = Get[models.Author](ctx, tx, Users, handle)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetAuthor returns the author with handle, or nil.
func (s *Store) GetAuthor(ctx context.Context, handle string) (*models.Author, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	return Get[models.Author](ctx, db, Users, models.NormalizeHandle(handle))
}

// ListAuthors returns every author ranked starred first, then by post count
// descending, then by handle.
func (s *Store) ListAuthors(ctx context.Context) ([]*models.Author, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}

	indexed, err := hasObject(ctx, db, "index", "idx_users_starred_count")
	if err != nil {
		return nil, err
	}
	if indexed {
		return Collect(Scan[models.Author](ctx, db, Users, Query{Index: "byStarredCount", Direction: Descending}))
	}

	s.logger.Warn("author ranking index missing, sorting in memory")
	authors, err := Collect(Scan[models.Author](ctx, db, Users, Query{}))
	if err != nil {
		return nil, err
	}
	sortAuthors(authors)
	return authors, nil
}

func sortAuthors(authors []*models.Author) {
	sort.SliceStable(authors, func(i, j int) bool {
		return models.AuthorLess(authors[i], authors[j])
	})
}

// SetStarred stars or unstars an author. It returns nil if the author does not exist.
func (s *Store) SetStarred(ctx context.Context, handle string, starred bool) (*models.Author, error) {
	return s.updateAuthor(ctx, handle, func(a *models.Author) { a.Starred = starred })
}

// UpdateNotes replaces an author's notes. It returns nil if the author does not exist.
func (s *Store) UpdateNotes(ctx context.Context, handle, notes string) (*models.Author, error) {
	return s.updateAuthor(ctx, handle, func(a *models.Author) { a.Notes = notes })
}

func (s *Store) updateAuthor(ctx context.Context, handle string, edit func(*models.Author)) (*models.Author, error) {
	handle = models.NormalizeHandle(handle)
	var updated *models.Author
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		a, err := Get[models.Author](ctx, tx, Users, handle)
		if err != nil || a == nil {
			return err
		}
		edit(a)
		if err := Put(ctx, tx, Users, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update author %s: %w", handle, err)
	}
	return updated, nil
}

// DeleteAuthorCascade removes an author with all their posts and blog posts.
// Keys are gathered first, then every delete commits in one transaction.
// Token cleanup runs afterwards and only logs on failure.
func (s *Store) DeleteAuthorCascade(ctx context.Context, handle string) (CascadeResult, error) {
	handle = models.NormalizeHandle(handle)
	ctx, span := s.startSpan(ctx, "DeleteAuthorCascade", attribute.String("author.handle", handle))
	var err error
	defer func() { endSpan(span, err) }()

	db, err := s.reader(ctx)
	if err != nil {
		return CascadeResult{}, err
	}
	posts, err := Collect(Scan[models.Post](ctx, db, Tweets, Query{Index: "byAuthor", Range: Only(handle)}))
	if err != nil {
		return CascadeResult{}, fmt.Errorf("collect posts for %s: %w", handle, err)
	}
	blogs, err := Collect(Scan[models.BlogPost](ctx, db, BlogPosts, Query{Index: "byAuthor", Range: Only(handle)}))
	if err != nil {
		return CascadeResult{}, fmt.Errorf("collect blog posts for %s: %w", handle, err)
	}

	var result CascadeResult
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE handle = ?", handle)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.Author = true
		}
		for _, p := range posts {
			if err := Delete(ctx, tx, Tweets, p.PostID); err != nil {
				return err
			}
		}
		for _, b := range blogs {
			if err := Delete(ctx, tx, BlogPosts, b.PostID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("delete author %s: %w", handle, err)
		return CascadeResult{}, err
	}
	result.Posts = len(posts)
	result.BlogPosts = len(blogs)

	changes := make([]indexChange, 0, len(posts))
	for _, p := range posts {
		changes = append(changes, changeFor(p.PostID, p.SearchText(), ""))
	}
	if indexErr := s.applyIndexChanges(ctx, changes); indexErr != nil {
		s.logger.Warn("author deleted but posts not unindexed", "author", handle, "err", indexErr)
	}

	s.logger.Info("deleted author", "author", handle, "posts", result.Posts, "blog_posts", result.BlogPosts)
	return result, nil
}

// RecountAuthors recomputes every author's counter from stored posts and
// returns how many authors were updated.
func (s *Store) RecountAuthors(ctx context.Context) (int, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET tweet_count = (
				SELECT COUNT(*) FROM tweets WHERE tweets.author_handle = users.handle
			)`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("recount authors: %w", err)
	}
	return int(n), nil
}

// recountHandles recomputes the counters of the given authors inside tx.
func recountHandles(ctx context.Context, tx *sqlx.Tx, handles map[string]bool) error {
	for h := range handles {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET tweet_count = (
				SELECT COUNT(*) FROM tweets WHERE author_handle = ?
			) WHERE handle = ?`, h, h); err != nil {
			return fmt.Errorf("recount %s: %w", h, err)
		}
	}
	return nil
}
