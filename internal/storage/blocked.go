// ABOUTME: Block list storage; blocked handles are refused at capture time
// ABOUTME: Blocking is idempotent and keeps the original block time

package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

// Block adds handle to the block list and returns the entry.
func (s *Store) Block(ctx context.Context, handle string) (*models.BlockedAuthor, error) {
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return nil, fmt.Errorf("%w: handle is required", ErrInvalidRecord)
	}

	var entry *models.BlockedAuthor
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := Get[models.BlockedAuthor](ctx, tx, Blocked, handle)
		if err != nil {
			return err
		}
		if existing != nil {
			entry = existing
			return nil
		}
		entry = &models.BlockedAuthor{Handle: handle, BlockedAt: timeutil.Now()}
		return Put(ctx, tx, Blocked, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", handle, err)
	}
	return entry, nil
}

// Unblock removes handle from the block list.
func (s *Store) Unblock(ctx context.Context, handle string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return Delete(ctx, tx, Blocked, models.NormalizeHandle(handle))
	})
}

// IsBlocked reports whether handle is on the block list.
func (s *Store) IsBlocked(ctx context.Context, handle string) (bool, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return false, err
	}
	entry, err := Get[models.BlockedAuthor](ctx, db, Blocked, models.NormalizeHandle(handle))
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// ListBlocked returns the block list ordered by handle.
func (s *Store) ListBlocked(ctx context.Context) ([]*models.BlockedAuthor, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	return Collect(Scan[models.BlockedAuthor](ctx, db, Blocked, Query{}))
}
