// ABOUTME: Generic record primitives over named collections: put, get, delete, count, and ordered scans
// ABOUTME: Scans are lazy iterators built with squirrel over an index, key range, direction, and paging window

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Index is a named secondary index over one or more columns.
type Index struct {
	Name    string
	SQLName string
	Columns []string
}

// Collection describes a table: its key column, every stored column in
// insertion order, and its secondary indexes.
type Collection struct {
	Name    string
	Key     string
	Columns []string
	Indexes []Index
}

func (c Collection) index(name string) (Index, bool) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// orderColumns resolves the columns a scan over index name walks. The empty
// name means the primary key.
func (c Collection) orderColumns(name string) ([]string, error) {
	if name == "" {
		return []string{c.Key}, nil
	}
	idx, ok := c.index(name)
	if !ok {
		return nil, fmt.Errorf("collection %s has no index %q", c.Name, name)
	}
	return idx.Columns, nil
}

var (
	Tweets = Collection{
		Name: "tweets",
		Key:  "post_id",
		Columns: []string{
			"post_id", "author_handle", "author_display_name", "full_text", "timestamp",
			"captured_at", "url", "avatar_url", "is_repost", "reposted_by",
			"reply_count", "retweet_count", "like_count", "bookmark_count", "view_count",
		},
		Indexes: []Index{
			{Name: "byAuthor", SQLName: "idx_tweets_author", Columns: []string{"author_handle"}},
			{Name: "byTimestamp", SQLName: "idx_tweets_timestamp", Columns: []string{"timestamp"}},
			{Name: "byAuthorTime", SQLName: "idx_tweets_author_time", Columns: []string{"author_handle", "timestamp"}},
			{Name: "byCapturedAt", SQLName: "idx_tweets_captured_at", Columns: []string{"captured_at"}},
		},
	}

	Users = Collection{
		Name:    "users",
		Key:     "handle",
		Columns: []string{"handle", "display_name", "avatar_url", "last_seen", "tweet_count", "starred", "notes"},
		Indexes: []Index{
			{Name: "byStarredCount", SQLName: "idx_users_starred_count", Columns: []string{"starred", "tweet_count"}},
		},
	}

	Blocked = Collection{
		Name:    "blocked_users",
		Key:     "handle",
		Columns: []string{"handle", "blocked_at"},
	}

	Settings = Collection{
		Name:    "settings",
		Key:     "key",
		Columns: []string{"key", "value"},
	}

	SearchIndex = Collection{
		Name:    "search_index",
		Key:     "token",
		Columns: []string{"token", "post_ids"},
	}

	BlogPosts = Collection{
		Name:    "blog_posts",
		Key:     "post_id",
		Columns: []string{"post_id", "handle", "title", "content", "created_at", "updated_at"},
		Indexes: []Index{
			{Name: "byAuthor", SQLName: "idx_blog_posts_handle", Columns: []string{"handle"}},
			{Name: "byAuthorCreated", SQLName: "idx_blog_posts_handle_created", Columns: []string{"handle", "created_at"}},
		},
	}
)

// Direction is the order a scan walks its index.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) sql() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// KeyRange bounds a scan. Bounds may cover a prefix of the index columns:
// a one-value bound on a two-column index matches on the first column only.
// A nil bound is unbounded on that side.
type KeyRange struct {
	Lower     []any
	Upper     []any
	LowerOpen bool
	UpperOpen bool
}

// Only matches keys equal to values on the leading index columns.
func Only(values ...any) *KeyRange {
	return &KeyRange{Lower: values, Upper: values}
}

// Between matches keys in the closed range [lower, upper].
func Between(lower, upper []any) *KeyRange {
	return &KeyRange{Lower: lower, Upper: upper}
}

// AtLeast matches keys greater than or equal to lower.
func AtLeast(lower ...any) *KeyRange {
	return &KeyRange{Lower: lower}
}

// maxKeySuffix sorts after every valid UTF-8 string with the same prefix.
const maxKeySuffix = "\U0010FFFF"

// Prefix matches string keys that start with p.
func Prefix(p string) *KeyRange {
	return &KeyRange{Lower: []any{p}, Upper: []any{p + maxKeySuffix}}
}

func (r *KeyRange) where(columns []string) (sq.Sqlizer, error) {
	if len(r.Lower) > len(columns) || len(r.Upper) > len(columns) {
		return nil, fmt.Errorf("key range has more values than index columns")
	}

	and := sq.And{}
	if equalBounds(r) {
		for i, v := range r.Lower {
			and = append(and, sq.Eq{columns[i]: v})
		}
		return and, nil
	}
	if len(r.Lower) > 0 {
		op := ">="
		if r.LowerOpen {
			op = ">"
		}
		and = append(and, tupleCompare(columns[:len(r.Lower)], op, r.Lower))
	}
	if len(r.Upper) > 0 {
		op := "<="
		if r.UpperOpen {
			op = "<"
		}
		and = append(and, tupleCompare(columns[:len(r.Upper)], op, r.Upper))
	}
	return and, nil
}

func equalBounds(r *KeyRange) bool {
	if r.LowerOpen || r.UpperOpen || len(r.Lower) == 0 || len(r.Lower) != len(r.Upper) {
		return false
	}
	for i := range r.Lower {
		if r.Lower[i] != r.Upper[i] {
			return false
		}
	}
	return true
}

// tupleCompare builds a row-value comparison such as (a, b) >= (?, ?).
func tupleCompare(columns []string, op string, values []any) sq.Sqlizer {
	if len(columns) == 1 {
		return sq.Expr(columns[0]+" "+op+" ?", values[0])
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return sq.Expr(fmt.Sprintf("(%s) %s (%s)", joinColumns(columns), op, placeholders), values...)
}

// Query selects records from a collection.
type Query struct {
	Index     string // empty means the primary key
	Range     *KeyRange
	Direction Direction
	Offset    int
	Limit     int // zero means unbounded
}

func (c Collection) selectBuilder(columns []string, q Query) (sq.SelectBuilder, error) {
	b := sq.Select(columns...).From(c.Name).PlaceholderFormat(sq.Question)

	indexColumns, err := c.orderColumns(q.Index)
	if err != nil {
		return b, err
	}
	if q.Range != nil {
		where, err := q.Range.where(indexColumns)
		if err != nil {
			return b, err
		}
		b = b.Where(where)
	}
	return b, nil
}

func (c Collection) scanBuilder(q Query) (sq.SelectBuilder, error) {
	b, err := c.selectBuilder(c.Columns, q)
	if err != nil {
		return b, err
	}

	indexColumns, _ := c.orderColumns(q.Index)
	order := make([]string, 0, len(indexColumns)+1)
	for _, col := range indexColumns {
		order = append(order, col+" "+q.Direction.sql())
	}
	if q.Index != "" {
		// Ties on the index break by primary key so paging is stable.
		order = append(order, c.Key+" ASC")
	}
	b = b.OrderBy(order...)

	switch {
	case q.Limit > 0:
		b = b.Limit(uint64(q.Limit))
		if q.Offset > 0 {
			b = b.Offset(uint64(q.Offset))
		}
	case q.Offset > 0:
		b = b.Suffix("LIMIT -1 OFFSET ?", q.Offset)
	}
	return b, nil
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

// Put inserts rec, fully replacing any record with the same key.
func Put[T any](ctx context.Context, e execer, c Collection, rec *T) error {
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (:%s)",
		c.Name, joinColumns(c.Columns), strings.Join(c.Columns, ", :"))
	if _, err := sqlx.NamedExecContext(ctx, e, query, rec); err != nil {
		return fmt.Errorf("put %s: %w", c.Name, err)
	}
	return nil
}

// Get returns the record with key, or nil if there is none.
func Get[T any](ctx context.Context, e execer, c Collection, key any) (*T, error) {
	query, args, err := sq.Select(c.Columns...).From(c.Name).Where(sq.Eq{c.Key: key}).ToSql()
	if err != nil {
		return nil, err
	}

	var rec T
	if err := e.GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", c.Name, err)
	}
	return &rec, nil
}

// Delete removes the record with key. Deleting a missing key is not an error.
func Delete(ctx context.Context, e execer, c Collection, key any) error {
	query, args, err := sq.Delete(c.Name).Where(sq.Eq{c.Key: key}).ToSql()
	if err != nil {
		return err
	}
	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", c.Name, err)
	}
	return nil
}

// Count returns how many records q's index and range match.
// Ordering and paging fields are ignored.
func Count(ctx context.Context, e execer, c Collection, q Query) (int, error) {
	b, err := c.selectBuilder([]string{"COUNT(*)"}, q)
	if err != nil {
		return 0, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := e.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name, err)
	}
	return n, nil
}

// Scan returns a lazy ordered walk over the records q selects. Each range
// over the sequence runs the query afresh, and stopping early releases the
// cursor.
func Scan[T any](ctx context.Context, e execer, c Collection, q Query) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		b, err := c.scanBuilder(q)
		if err != nil {
			yield(nil, err)
			return
		}
		query, args, err := b.ToSql()
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := e.QueryxContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", c.Name, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec T
			if err := rows.StructScan(&rec); err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", c.Name, err))
				return
			}
			if !yield(&rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", c.Name, err))
		}
	}
}

// Collect drains a scan into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[*T, error]) ([]*T, error) {
	var out []*T
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
