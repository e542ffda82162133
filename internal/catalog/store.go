package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"eta/internal/logging"
)

// Entry is one indexed container file.
type Entry struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	ContainerClass string    `json:"container_class"`
	ElementClass   string    `json:"element_class,omitempty"`
	ElementCount   int       `json:"element_count"`
	SizeBytes      int64     `json:"size_bytes"`
	WrittenAt      time.Time `json:"written_at"`
}

// Summary is what the catalog needs to know about a container.
type Summary interface {
	ClassName() string
	ElementClass() string
	Len() int
}

// writtenAtLayout has fixed-width fractions so written_at sorts as text.
const writtenAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = "id, path, container_class, element_class, element_count, size_bytes, written_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		e          Entry
		writtenRaw string
	)
	if err := scanner.Scan(&e.ID, &e.Path, &e.ContainerClass, &e.ElementClass, &e.ElementCount, &e.SizeBytes, &writtenRaw); err != nil {
		return nil, err
	}
	written, err := time.Parse(writtenAtLayout, writtenRaw)
	if err != nil {
		return nil, fmt.Errorf("parse written_at %q: %w", writtenRaw, err)
	}
	e.WrittenAt = written
	return &e, nil
}

// Record indexes the container c stored at path. Recording a path again
// replaces its classes and counts but keeps its id.
func (s *Store) Record(ctx context.Context, path string, c Summary) (*Entry, error) {
	if c == nil {
		return nil, errors.New("catalog: nil container")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	var size int64
	if info, statErr := os.Stat(abs); statErr == nil {
		size = info.Size()
	}

	entry := &Entry{
		ID:             uuid.NewString(),
		Path:           abs,
		ContainerClass: c.ClassName(),
		ElementClass:   c.ElementClass(),
		ElementCount:   c.Len(),
		SizeBytes:      size,
		WrittenAt:      time.Now().UTC(),
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			container_class = excluded.container_class,
			element_class = excluded.element_class,
			element_count = excluded.element_count,
			size_bytes = excluded.size_bytes,
			written_at = excluded.written_at`,
		entry.ID, entry.Path, entry.ContainerClass, entry.ElementClass, entry.ElementCount, entry.SizeBytes,
		entry.WrittenAt.Format(writtenAtLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", abs, err)
	}

	stored, err := s.LookupPath(ctx, abs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("catalog entry recorded",
		logging.String(logging.FieldPath, abs),
		logging.String(logging.FieldClass, stored.ContainerClass),
		logging.Int(logging.FieldCount, stored.ElementCount),
	)
	return stored, nil
}

// List returns every entry, most recently written first. A non-empty
// containerClass restricts the result to that class.
func (s *Store) List(ctx context.Context, containerClass string) ([]*Entry, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + entryColumns + " FROM entries"
	var args []any
	if containerClass != "" {
		query += " WHERE container_class = ?"
		args = append(args, containerClass)
	}
	query += " ORDER BY written_at DESC, path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Lookup returns the entry with the given id.
func (s *Store) Lookup(ctx context.Context, id string) (*Entry, error) {
	return s.lookup(ctx, "id", id)
}

// LookupPath returns the entry for path.
func (s *Store) LookupPath(ctx context.Context, path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return s.lookup(ctx, "path", abs)
}

func (s *Store) lookup(ctx context.Context, column, value string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE "+column+" = ?", value)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", value, err)
	}
	return entry, nil
}

// Remove deletes the entry with the given id.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Prune removes entries whose files no longer exist and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context) (int, error) {
	entries, err := s.List(ctx, "")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if _, statErr := os.Stat(entry.Path); !errors.Is(statErr, os.ErrNotExist) {
			continue
		}
		if err := s.Remove(ctx, entry.ID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("catalog pruned", logging.Int(logging.FieldCount, removed))
	}
	return removed, nil
}
