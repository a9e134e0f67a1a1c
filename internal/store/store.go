package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store is the SQLite data access layer for thicket's four tables.
type Store struct {
	db *sqlx.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open(DriverName, dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sqlx.DB for use in transactions.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// QueryReadOnly runs query on a dedicated connection with query_only set,
// so no statement in it can write, and passes each row to fn as a
// column-to-value map. The pragma is cleared before the connection goes
// back to the pool.
func (s *Store) QueryReadOnly(ctx context.Context, query string, args []any, fn func(row map[string]any) error) (err error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("read-only query: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("read-only query: %w", err)
	}
	defer func() {
		if _, resetErr := conn.ExecContext(context.Background(), "PRAGMA query_only = OFF"); resetErr != nil && err == nil {
			err = fmt.Errorf("read-only query: reset: %w", resetErr)
		}
	}()

	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("read-only query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return fmt.Errorf("read-only query: scan: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read-only query: %w", err)
	}
	return nil
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT NOT NULL,
  line_count      INTEGER NOT NULL DEFAULT 0,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  node_type       TEXT NOT NULL,
  name            TEXT,
  context_path    TEXT NOT NULL DEFAULT '[]',
  start_byte      INTEGER NOT NULL,
  end_byte        INTEGER NOT NULL,
  start_line      INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  leading_comment TEXT,
  content         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  raw_import      TEXT NOT NULL,
  resolved_path   TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_chunks_lines ON chunks(file_id, start_line, end_line);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_imports_resolved ON imports(resolved_path);
`

// DeleteFileData transactionally removes the chunks and imports of a file.
// The file record itself stays.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM chunks WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteFile removes a file record together with all of its data.
func (s *Store) DeleteFile(fileID int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := deleteFilesTx(tx, []int64{fileID}); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFilesNotIn removes every file whose path is not in keep and returns
// the removed paths in sorted order.
func (s *Store) DeleteFilesNotIn(keep []string) ([]string, error) {
	files, err := s.AllFiles()
	if err != nil {
		return nil, err
	}
	keepSet := make(map[string]bool, len(keep))
	for _, p := range keep {
		keepSet[p] = true
	}

	var ids []int64
	var removed []string
	for _, f := range files {
		if !keepSet[f.Path] {
			ids = append(ids, f.ID)
			removed = append(removed, f.Path)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := deleteFilesTx(tx, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit prune: %w", err)
	}
	return removed, nil
}

func deleteFilesTx(tx *sqlx.Tx, ids []int64) error {
	for _, q := range []string{
		"DELETE FROM chunks WHERE file_id IN (?)",
		"DELETE FROM imports WHERE file_id IN (?)",
		"DELETE FROM files WHERE id IN (?)",
	} {
		query, args, err := sqlx.In(q, ids)
		if err != nil {
			return fmt.Errorf("expand delete: %w", err)
		}
		if _, err := tx.Exec(tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}
	}
	return nil
}
