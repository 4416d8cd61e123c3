// ABOUTME: Sentinel errors for the vault storage engine
// ABOUTME: Callers match with errors.Is; wrapped errors carry the underlying cause

package storage

import "errors"

var (
	// ErrStoreUnavailable means the database could not be opened or has gone away.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned by callers that require a record to exist.
	// Engine lookups report absence with a nil record instead.
	ErrNotFound = errors.New("not found")

	// ErrIndexMaintenance marks a search-index update that failed after the
	// primary write committed.
	ErrIndexMaintenance = errors.New("search index maintenance failed")

	// ErrImportValidation means a snapshot was rejected before any write.
	ErrImportValidation = errors.New("invalid snapshot")

	// ErrMigration means a schema upgrade failed and was rolled back.
	ErrMigration = errors.New("schema migration failed")

	// ErrInvalidRecord means a record is missing its key or a required field.
	ErrInvalidRecord = errors.New("invalid record")
)
