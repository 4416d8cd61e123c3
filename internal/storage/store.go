// ABOUTME: SQLite-backed vault store using modernc.org/sqlite (pure Go) through sqlx
// ABOUTME: Owns the lazily opened connection, schema upgrade on open, and transaction helpers

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const tracerName = "github.com/harper/xvault/internal/storage"

// execer is satisfied by both *sqlx.DB and *sqlx.Tx so record helpers can
// run inside or outside a transaction.
type execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Store is the vault's storage engine. It is safe for concurrent use; the
// connection is opened on first use and reopened after Close.
type Store struct {
	path       string
	logger     *log.Logger
	tracer     trace.Tracer
	migrations []Migration

	mu sync.Mutex
	db *sqlx.DB
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for warnings about best-effort work.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used to span engine operations.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMigrations replaces the migration list. Used to open a database at an
// older schema version.
func WithMigrations(migrations []Migration) Option {
	return func(s *Store) {
		s.migrations = migrations
	}
}

// New returns a store for the database at path without touching disk.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:       path,
		logger:     log.New(io.Discard),
		tracer:     otel.Tracer(tracerName),
		migrations: Migrations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store and eagerly opens the database, running any pending
// schema upgrade.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := New(path, opts...)
	if _, err := s.handle(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying connection. The next operation reopens it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the shared connection, opening it if needed.
func (s *Store) handle(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.db = db
	return db, nil
}

func (s *Store) open(ctx context.Context) (*sqlx.DB, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := s.path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(ctx, db, s.migrations, s.logger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// dropIfClosed forgets the cached connection when err says db was closed
// underneath us, so the next call reopens. A newer connection opened by
// another caller is left in place.
func (s *Store) dropIfClosed(db *sqlx.DB, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		s.mu.Lock()
		if s.db == db {
			s.db = nil
		}
		s.mu.Unlock()
		s.logger.Warn("database connection closed, will reopen", "path", s.path)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

// reader returns a connection for read-only work outside a transaction.
func (s *Store) reader(ctx context.Context) (execer, error) {
	return s.handle(ctx)
}

// withTx runs fn in a single immediate transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return s.dropIfClosed(db, fmt.Errorf("begin transaction: %w", err))
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return s.dropIfClosed(db, err)
	}

	if err := tx.Commit(); err != nil {
		return s.dropIfClosed(db, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// startSpan opens a tracing span for an engine operation.
func (s *Store) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SchemaVersion returns the on-disk schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return 0, err
	}
	return schemaVersion(ctx, db)
}

func schemaVersion(ctx context.Context, e execer) (int, error) {
	var version int
	if err := e.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// hasObject reports whether a table or index named name exists.
func hasObject(ctx context.Context, e execer, kind, name string) (bool, error) {
	var n int
	err := e.GetContext(ctx, &n, "SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
