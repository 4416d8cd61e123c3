// ABOUTME: Post search: token-index intersection with a substring-scan fallback
// ABOUTME: A missing or corrupt index degrades to the scan instead of failing the query

package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harper/xvault/internal/models"
)

var errNoSearchIndex = errors.New("search index table missing")

// SearchPosts returns posts matching query, newest first. Every query token
// must appear in a post for the index path to match it. When the index is
// unusable or matches nothing, posts whose text, handle, or display name
// contain the query are returned instead. A zero limit is unbounded.
func (s *Store) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	ctx, span := s.startSpan(ctx, "SearchPosts", attribute.String("search.query", query))
	var err error
	defer func() { endSpan(span, err) }()

	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}

	if tokens := Tokenize(query); len(tokens) > 0 {
		posts, indexErr := searchTokens(ctx, db, tokens, limit)
		switch {
		case indexErr != nil:
			s.logger.Warn("search index unusable, scanning posts", "err", indexErr)
		case len(posts) > 0:
			return posts, nil
		}
	}

	posts, err := scanSearch(ctx, db, query, limit)
	return posts, err
}

// searchTokens intersects the id lists of every token and loads the matching posts.
func searchTokens(ctx context.Context, db execer, tokens []string, limit int) ([]*models.Post, error) {
	present, err := hasObject(ctx, db, "table", SearchIndex.Name)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, errNoSearchIndex
	}

	var matched []string
	for i, tok := range tokens {
		entry, err := Get[tokenEntry](ctx, db, SearchIndex, tok)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil
		}
		ids, err := entry.ids()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			matched = ids
			continue
		}
		matched = slices.DeleteFunc(matched, func(id string) bool { return !slices.Contains(ids, id) })
		if len(matched) == 0 {
			return nil, nil
		}
	}

	b := sq.Select(Tweets.Columns...).
		From(Tweets.Name).
		Where(sq.Eq{Tweets.Key: matched}).
		OrderBy("timestamp DESC", "post_id ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var posts []*models.Post
	if err := db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}
	return posts, nil
}

// scanSearch walks posts newest first and keeps those containing query.
func scanSearch(ctx context.Context, db execer, query string, limit int) ([]*models.Post, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []*models.Post{}, nil
	}

	results := []*models.Post{}
	for p, err := range Scan[models.Post](ctx, db, Tweets, Query{Index: "byTimestamp", Direction: Descending}) {
		if err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToLower(p.FullText), needle) ||
			strings.Contains(strings.ToLower(p.AuthorHandle), needle) ||
			strings.Contains(strings.ToLower(p.AuthorDisplayName), needle) {
			results = append(results, p)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}
