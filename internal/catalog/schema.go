package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// initSchema creates the tables on an empty database and refuses to open one
// written by a different schema version.
func (s *Store) initSchema(ctx context.Context) error {
	version, err := s.storedVersion(ctx)
	switch {
	case err != nil:
		return err
	case version == 0:
		return s.createSchema(ctx)
	case version != schemaVersion:
		return fmt.Errorf("%w: %s is at version %d, this build reads %d; remove the file to rebuild it",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

// storedVersion returns 0 when the database has never been initialized.
func (s *Store) storedVersion(ctx context.Context) (int, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inspect catalog tables: %w", err)
	}

	var version sql.NullInt64
	err = s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read catalog schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (s *Store) createSchema(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog schema: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply catalog schema: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("stamp catalog schema version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog schema: %w", err)
	}
	return nil
}
