package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const fileCols = `id, path, language, hash, line_count, last_indexed`

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// UpdateFile rewrites the record of an already indexed file in place, so
// its ID stays stable across re-indexing.
func (s *Store) UpdateFile(f *File) error {
	_, err := s.db.Exec(
		"UPDATE files SET language = ?, hash = ?, line_count = ?, last_indexed = ? WHERE id = ?",
		f.Language, f.Hash, f.LineCount, f.LastIndexed, f.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// FileByPath returns nil, nil when no file has the path.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.Get(f, "SELECT "+fileCols+" FROM files WHERE path = ?", path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	var files []*File
	if err := s.db.Select(&files, "SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language); err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// AllFiles returns every indexed file ordered by path.
func (s *Store) AllFiles() ([]*File, error) {
	var files []*File
	if err := s.db.Select(&files, "SELECT "+fileCols+" FROM files ORDER BY path"); err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	return files, nil
}

// AllPaths returns every indexed path in sorted order.
func (s *Store) AllPaths() ([]string, error) {
	var paths []string
	if err := s.db.Select(&paths, "SELECT path FROM files ORDER BY path"); err != nil {
		return nil, fmt.Errorf("all paths: %w", err)
	}
	return paths, nil
}

// --- Metadata ---

// GetMetadata returns "" when the key is unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM metadata WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
