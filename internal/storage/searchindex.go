// ABOUTME: Inverted token index mapping each search token to the post ids containing it
// ABOUTME: Maintained after primary writes commit; failures surface as ErrIndexMaintenance

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/harper/xvault/internal/models"
)

type tokenEntry struct {
	Token   string `db:"token"`
	PostIDs string `db:"post_ids"`
}

func (e *tokenEntry) ids() ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(e.PostIDs), &ids); err != nil {
		return nil, fmt.Errorf("corrupt search entry %q: %w", e.Token, err)
	}
	return ids, nil
}

// indexChange is the token delta for one post.
type indexChange struct {
	postID  string
	removed []string
	added   []string
}

func changeFor(postID, before, after string) indexChange {
	removed, added := tokenDiff(Tokenize(before), Tokenize(after))
	return indexChange{postID: postID, removed: removed, added: added}
}

func (c indexChange) empty() bool {
	return len(c.removed) == 0 && len(c.added) == 0
}

// applyIndexChanges writes a batch of token deltas in one transaction.
func (s *Store) applyIndexChanges(ctx context.Context, changes []indexChange) error {
	changes = slices.DeleteFunc(changes, indexChange.empty)
	if len(changes) == 0 {
		return nil
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range changes {
			for _, tok := range c.added {
				if err := updateToken(ctx, tx, tok, func(ids []string) []string {
					if slices.Contains(ids, c.postID) {
						return ids
					}
					return append(ids, c.postID)
				}); err != nil {
					return err
				}
			}
			for _, tok := range c.removed {
				if err := updateToken(ctx, tx, tok, func(ids []string) []string {
					return slices.DeleteFunc(ids, func(id string) bool { return id == c.postID })
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexMaintenance, err)
	}
	return nil
}

// updateToken rewrites one token's id list. An emptied list removes the token.
func updateToken(ctx context.Context, tx *sqlx.Tx, token string, edit func([]string) []string) error {
	entry, err := Get[tokenEntry](ctx, tx, SearchIndex, token)
	if err != nil {
		return err
	}

	var ids []string
	if entry != nil {
		// A corrupt entry is rebuilt from scratch rather than failing the write.
		ids, _ = entry.ids()
	}
	ids = edit(ids)

	if len(ids) == 0 {
		return Delete(ctx, tx, SearchIndex, token)
	}
	return putToken(ctx, tx, token, ids)
}

func putToken(ctx context.Context, e execer, token string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return Put(ctx, e, SearchIndex, &tokenEntry{Token: token, PostIDs: string(data)})
}

// IndexPost adds p's tokens to the search index.
func (s *Store) IndexPost(ctx context.Context, p *models.Post) error {
	return s.applyIndexChanges(ctx, []indexChange{changeFor(p.PostID, "", p.SearchText())})
}

// UnindexPost removes p's tokens from the search index.
func (s *Store) UnindexPost(ctx context.Context, p *models.Post) error {
	return s.applyIndexChanges(ctx, []indexChange{changeFor(p.PostID, p.SearchText(), "")})
}

// Reindex rebuilds the search index from every stored post and returns the
// number of distinct tokens written.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "Reindex")
	var err error
	defer func() { endSpan(span, err) }()

	tokens := 0
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		posts, err := Collect(Scan[models.Post](ctx, tx, Tweets, Query{}))
		if err != nil {
			return err
		}

		byToken := make(map[string][]string)
		var order []string
		for _, p := range posts {
			for _, tok := range Tokenize(p.SearchText()) {
				if _, ok := byToken[tok]; !ok {
					order = append(order, tok)
				}
				byToken[tok] = append(byToken[tok], p.PostID)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM search_index"); err != nil {
			return fmt.Errorf("clear search index: %w", err)
		}
		for _, tok := range order {
			if err := putToken(ctx, tx, tok, byToken[tok]); err != nil {
				return err
			}
		}
		tokens = len(order)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIndexMaintenance, err)
		return 0, err
	}

	s.logger.Info("rebuilt search index", "tokens", tokens)
	return tokens, nil
}
