package catalog

import "errors"

var (
	// ErrNotFound indicates no entry matches the requested id or path.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("catalog schema version mismatch")
)
