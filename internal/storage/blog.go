// ABOUTME: Blog post storage for free-form notes attached to an author
// ABOUTME: Listing walks the (handle, created_at) index newest first

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

// CreateBlogPost stores a new blog post for handle.
func (s *Store) CreateBlogPost(ctx context.Context, handle, title, content string) (*models.BlogPost, error) {
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return nil, fmt.Errorf("%w: blog post needs a handle", ErrInvalidRecord)
	}

	now := time.Now()
	post := &models.BlogPost{
		PostID:    models.NewBlogPostID(now),
		Handle:    handle,
		Title:     title,
		Content:   content,
		CreatedAt: timeutil.Format(now),
		UpdatedAt: timeutil.Format(now),
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return Put(ctx, tx, BlogPosts, post)
	})
	if err != nil {
		return nil, fmt.Errorf("create blog post: %w", err)
	}
	return post, nil
}

// UpdateBlogPost replaces a blog post's title and content. It returns nil
// if there is no such post.
func (s *Store) UpdateBlogPost(ctx context.Context, id, title, content string) (*models.BlogPost, error) {
	var updated *models.BlogPost
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		post, err := Get[models.BlogPost](ctx, tx, BlogPosts, id)
		if err != nil || post == nil {
			return err
		}
		post.Title = title
		post.Content = content
		post.UpdatedAt = timeutil.Now()
		if err := Put(ctx, tx, BlogPosts, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update blog post %s: %w", id, err)
	}
	return updated, nil
}

// GetBlogPost returns the blog post with id, or nil.
func (s *Store) GetBlogPost(ctx context.Context, id string) (*models.BlogPost, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	return Get[models.BlogPost](ctx, db, BlogPosts, id)
}

// DeleteBlogPost removes the blog post with id.
func (s *Store) DeleteBlogPost(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return Delete(ctx, tx, BlogPosts, id)
	})
}

// ListBlogPosts returns handle's blog posts, newest first.
func (s *Store) ListBlogPosts(ctx context.Context, handle string) ([]*models.BlogPost, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	return Collect(Scan[models.BlogPost](ctx, db, BlogPosts, Query{
		Index:     "byAuthorCreated",
		Range:     Only(models.NormalizeHandle(handle)),
		Direction: Descending,
	}))
}
