// ABOUTME: Capture service: the policy layer between capture sources and the storage engine
// ABOUTME: Applies the block list and home-feed thresholds, then stores posts and keeps authors current

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/storage"
	"github.com/harper/xvault/internal/timeutil"
)

// ErrInvalidPost means a capture was missing its id or author.
var ErrInvalidPost = errors.New("post needs postId and authorHandle")

// Options describe where a capture came from.
type Options struct {
	// FromHome marks posts seen on the home timeline, which must pass the
	// home-feed settings to be kept.
	FromHome bool
}

// Service applies capture policy on top of a store.
type Service struct {
	store  *storage.Store
	logger *log.Logger
}

// New returns a capture service. A nil logger discards output.
func New(store *storage.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{store: store, logger: logger}
}

// Store returns the underlying store.
func (s *Service) Store() *storage.Store {
	return s.store
}

// Ingest captures one post. Blocked authors and home-feed posts that fail
// the thresholds are reported on the outcome and not stored. A newly
// inserted post also creates or refreshes its author.
func (s *Service) Ingest(ctx context.Context, p *models.Post, opts Options) (models.StoreOutcome, error) {
	if p == nil {
		return models.StoreOutcome{}, ErrInvalidPost
	}
	p.AuthorHandle = models.NormalizeHandle(p.AuthorHandle)
	if p.PostID == "" || p.AuthorHandle == "" {
		return models.StoreOutcome{}, ErrInvalidPost
	}

	blocked, err := s.store.IsBlocked(ctx, p.AuthorHandle)
	if err != nil {
		return models.StoreOutcome{}, fmt.Errorf("check block list: %w", err)
	}
	if blocked {
		s.logger.Debug("skipping blocked author", "author", p.AuthorHandle, "post", p.PostID)
		return models.StoreOutcome{Blocked: true}, nil
	}

	if opts.FromHome {
		hf, err := s.store.HomeFeed(ctx)
		if err != nil {
			return models.StoreOutcome{}, fmt.Errorf("read home feed settings: %w", err)
		}
		if !hf.Admits(p) {
			return models.StoreOutcome{Filtered: true}, nil
		}
	}

	out, err := s.store.StorePost(ctx, p)
	if err != nil {
		return models.StoreOutcome{}, err
	}

	if out.Inserted {
		author := &models.Author{
			Handle:      p.AuthorHandle,
			DisplayName: p.AuthorDisplayName,
			AvatarURL:   p.AvatarURL,
			LastSeen:    timeutil.Now(),
		}
		// StorePost already counted the post for an existing author.
		if _, _, err := s.store.StoreAuthor(ctx, author, true); err != nil {
			return out, fmt.Errorf("store author %s: %w", p.AuthorHandle, err)
		}
	}
	return out, nil
}

// IngestBatch captures posts in order and returns one outcome per post.
// It stops at the first hard error.
func (s *Service) IngestBatch(ctx context.Context, posts []*models.Post, opts Options) ([]models.StoreOutcome, error) {
	outcomes := make([]models.StoreOutcome, 0, len(posts))
	for _, p := range posts {
		out, err := s.Ingest(ctx, p, opts)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// DeletePost removes one post and returns how many posts remain.
func (s *Service) DeletePost(ctx context.Context, id string) (bool, int, error) {
	deleted, err := s.store.DeletePost(ctx, id)
	if err != nil {
		return false, 0, err
	}
	remaining, err := s.store.CountPosts(ctx)
	if err != nil {
		return deleted != nil, 0, err
	}
	return deleted != nil, remaining, nil
}

// DeleteAuthor removes an author together with everything captured for them.
func (s *Service) DeleteAuthor(ctx context.Context, handle string) (storage.CascadeResult, error) {
	return s.store.DeleteAuthorCascade(ctx, handle)
}

// Block adds handle to the block list and then deletes everything stored
// for them.
func (s *Service) Block(ctx context.Context, handle string) (storage.CascadeResult, error) {
	if _, err := s.store.Block(ctx, handle); err != nil {
		return storage.CascadeResult{}, err
	}
	res, err := s.store.DeleteAuthorCascade(ctx, handle)
	if err != nil {
		return storage.CascadeResult{}, fmt.Errorf("blocked %s but cleanup failed: %w", handle, err)
	}
	s.logger.Info("blocked author", "author", models.NormalizeHandle(handle), "posts_removed", res.Posts)
	return res, nil
}

// Unblock removes handle from the block list. Previously deleted data is not restored.
func (s *Service) Unblock(ctx context.Context, handle string) error {
	return s.store.Unblock(ctx, handle)
}
