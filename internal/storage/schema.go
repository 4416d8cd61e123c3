// ABOUTME: Versioned schema migrations tracked in PRAGMA user_version
// ABOUTME: Each step plans its DDL from the collections already present, then runs an optional backfill

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"

	"github.com/harper/xvault/internal/timeutil"
)

// CollectionSet names the tables and indexes present before a step runs.
type CollectionSet map[string]bool

// Has reports whether name is present.
func (c CollectionSet) Has(name string) bool {
	return c[name]
}

// Step is what a migration does: DDL statements, then an optional backfill.
type Step struct {
	Statements []string
	Backfill   func(ctx context.Context, tx *sqlx.Tx, logger *log.Logger) error
}

// Migration upgrades the schema to Version. Plan is a pure function of the
// collections present and the version the database started at, so it can
// be tested without a database.
type Migration struct {
	Version int
	Name    string
	Plan    func(existing CollectionSet, oldVersion int) Step
}

// Migrations is the full upgrade path. The last entry is the current version.
var Migrations = []Migration{
	{Version: 1, Name: "base collections", Plan: planBaseCollections},
	{Version: 2, Name: "author ranking index", Plan: planAuthorRanking},
	{Version: 3, Name: "block list", Plan: planBlockList},
	{Version: 4, Name: "search tokens", Plan: planSearchTokens},
	{Version: 5, Name: "capture recency index", Plan: planRecencyIndex},
	{Version: 6, Name: "blog posts", Plan: planBlogPosts},
}

// CurrentVersion is the schema version this build writes.
func CurrentVersion() int {
	return Migrations[len(Migrations)-1].Version
}

func planBaseCollections(existing CollectionSet, _ int) Step {
	var step Step
	if !existing.Has(Tweets.Name) {
		step.Statements = append(step.Statements, `
			CREATE TABLE tweets (
				post_id TEXT PRIMARY KEY,
				author_handle TEXT NOT NULL,
				author_display_name TEXT NOT NULL DEFAULT '',
				full_text TEXT NOT NULL DEFAULT '',
				timestamp TEXT NOT NULL DEFAULT '',
				captured_at TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT '',
				is_repost INTEGER NOT NULL DEFAULT 0,
				reposted_by TEXT,
				reply_count INTEGER,
				retweet_count INTEGER,
				like_count INTEGER,
				bookmark_count INTEGER,
				view_count INTEGER
			)`)
	}
	step.Statements = append(step.Statements, indexStatements(Tweets, existing, "byAuthor", "byTimestamp", "byAuthorTime")...)

	if !existing.Has(Users.Name) {
		step.Statements = append(step.Statements, `
			CREATE TABLE users (
				handle TEXT PRIMARY KEY,
				display_name TEXT NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT '',
				last_seen TEXT NOT NULL DEFAULT '',
				tweet_count INTEGER NOT NULL DEFAULT 0,
				starred INTEGER NOT NULL DEFAULT 0,
				notes TEXT NOT NULL DEFAULT ''
			)`)
	}

	if !existing.Has(Settings.Name) {
		step.Statements = append(step.Statements, `
			CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`)
	}
	return step
}

func planAuthorRanking(existing CollectionSet, oldVersion int) Step {
	step := Step{Statements: indexStatements(Users, existing, "byStarredCount")}
	// Databases from before the starred column lived on authors kept stars in a settings list.
	if oldVersion < 2 {
		step.Backfill = backfillLegacyStars
	}
	return step
}

func planBlockList(existing CollectionSet, oldVersion int) Step {
	var step Step
	if !existing.Has(Blocked.Name) {
		step.Statements = append(step.Statements, `
			CREATE TABLE blocked_users (
				handle TEXT PRIMARY KEY,
				blocked_at TEXT NOT NULL
			)`)
	}
	if oldVersion < 3 {
		step.Backfill = backfillLegacyBlocks
	}
	return step
}

func planSearchTokens(existing CollectionSet, _ int) Step {
	if existing.Has(SearchIndex.Name) {
		return Step{}
	}
	return Step{Statements: []string{`
		CREATE TABLE search_index (
			token TEXT PRIMARY KEY,
			post_ids TEXT NOT NULL DEFAULT '[]'
		)`}}
}

func planRecencyIndex(existing CollectionSet, _ int) Step {
	return Step{Statements: indexStatements(Tweets, existing, "byCapturedAt")}
}

func planBlogPosts(existing CollectionSet, _ int) Step {
	var step Step
	if !existing.Has(BlogPosts.Name) {
		step.Statements = append(step.Statements, `
			CREATE TABLE blog_posts (
				post_id TEXT PRIMARY KEY,
				handle TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`)
	}
	step.Statements = append(step.Statements, indexStatements(BlogPosts, existing, "byAuthor", "byAuthorCreated")...)
	return step
}

// indexStatements returns CREATE INDEX statements for the named indexes of c
// that are not yet present.
func indexStatements(c Collection, existing CollectionSet, names ...string) []string {
	var stmts []string
	for _, name := range names {
		idx, ok := c.index(name)
		if !ok || existing.Has(idx.SQLName) {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx.SQLName, c.Name, joinColumns(idx.Columns)))
	}
	return stmts
}

const (
	legacyStarredKey = "starredUsers"
	legacyBlockedKey = "blockedUsers"
)

func backfillLegacyStars(ctx context.Context, tx *sqlx.Tx, logger *log.Logger) error {
	handles, err := legacyHandleList(ctx, tx, legacyStarredKey)
	if err != nil || len(handles) == 0 {
		return err
	}
	for _, h := range handles {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET starred = 1 WHERE handle = ?", h); err != nil {
			return fmt.Errorf("backfill starred %s: %w", h, err)
		}
	}
	// The legacy starred list stays in settings; only the block list is moved out.
	logger.Info("migrated legacy starred authors", "count", len(handles))
	return nil
}

func backfillLegacyBlocks(ctx context.Context, tx *sqlx.Tx, logger *log.Logger) error {
	handles, err := legacyHandleList(ctx, tx, legacyBlockedKey)
	if err != nil || len(handles) == 0 {
		return err
	}
	now := timeutil.Now()
	for _, h := range handles {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO blocked_users (handle, blocked_at) VALUES (?, ?)", h, now); err != nil {
			return fmt.Errorf("backfill blocked %s: %w", h, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", legacyBlockedKey); err != nil {
		logger.Warn("could not remove legacy block list", "err", err)
	}
	logger.Info("migrated legacy block list", "count", len(handles))
	return nil
}

// legacyHandleList reads a settings row holding a JSON array of handles.
// A missing or malformed row yields nothing.
func legacyHandleList(ctx context.Context, tx *sqlx.Tx, key string) ([]string, error) {
	present, err := hasObject(ctx, tx, "table", Settings.Name)
	if err != nil || !present {
		return nil, err
	}
	var raw []string
	if err := tx.SelectContext(ctx, &raw, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		return nil, fmt.Errorf("read legacy %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var handles []string
	if err := json.Unmarshal([]byte(raw[0]), &handles); err != nil {
		return nil, nil
	}
	return handles, nil
}

// loadCollectionSet lists the tables and indexes currently in the database.
func loadCollectionSet(ctx context.Context, e execer) (CollectionSet, error) {
	var names []string
	if err := e.SelectContext(ctx, &names, "SELECT name FROM sqlite_master WHERE type IN ('table', 'index')"); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	set := make(CollectionSet, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// migrate brings db up to the last version in migrations. All pending steps
// run in one transaction; any failure rolls the database back to the
// version it started at.
func migrate(ctx context.Context, db *sqlx.DB, migrations []Migration, logger *log.Logger) error {
	if len(migrations) == 0 {
		return nil
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}
	target := migrations[len(migrations)-1].Version
	if current >= target {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrMigration, err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, tx, m, current, logger); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: version %d (%s): %w", ErrMigration, m.Version, m.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: record version: %w", ErrMigration, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrMigration, err)
	}

	logger.Info("schema upgraded", "from", current, "to", target)
	return nil
}

func applyMigration(ctx context.Context, tx *sqlx.Tx, m Migration, oldVersion int, logger *log.Logger) error {
	existing, err := loadCollectionSet(ctx, tx)
	if err != nil {
		return err
	}
	step := m.Plan(existing, oldVersion)
	for _, stmt := range step.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if step.Backfill != nil {
		if err := step.Backfill(ctx, tx, logger); err != nil {
			return err
		}
	}
	logger.Debug("applied migration", "version", m.Version, "name", m.Name)
	return nil
}
