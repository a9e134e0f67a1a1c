package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const importCols = `i.id, i.file_id, i.ordinal, i.raw_import, i.resolved_path, f.path AS source_path`

func (s *Store) InsertImport(imp *Import) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO imports (file_id, ordinal, raw_import, resolved_path) VALUES (?, ?, ?, ?)",
		imp.FileID, imp.Ordinal, imp.RawImport, imp.ResolvedPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	imp.ID = id
	return id, nil
}

// ImportsByFile returns a file's imports in source order.
func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	var imps []*Import
	err := s.db.Select(&imps,
		"SELECT "+importCols+" FROM imports i JOIN files f ON f.id = i.file_id WHERE i.file_id = ? ORDER BY i.ordinal",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	return imps, nil
}

// AllImports returns every import ordered by source path and position.
func (s *Store) AllImports() ([]*Import, error) {
	var imps []*Import
	err := s.db.Select(&imps,
		"SELECT "+importCols+" FROM imports i JOIN files f ON f.id = i.file_id ORDER BY f.path, i.ordinal",
	)
	if err != nil {
		return nil, fmt.Errorf("all imports: %w", err)
	}
	return imps, nil
}

// ImportsForFiles returns the imports of the given files.
func (s *Store) ImportsForFiles(fileIDs []int64) ([]*Import, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT "+importCols+" FROM imports i JOIN files f ON f.id = i.file_id WHERE i.file_id IN (?) ORDER BY f.path, i.ordinal",
		fileIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("expand imports for files: %w", err)
	}
	var imps []*Import
	if err := s.db.Select(&imps, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("imports for files: %w", err)
	}
	return imps, nil
}

// ImportersOf returns the imports, from any file, that resolved to path.
func (s *Store) ImportersOf(path string) ([]*Import, error) {
	var imps []*Import
	err := s.db.Select(&imps,
		"SELECT "+importCols+" FROM imports i JOIN files f ON f.id = i.file_id WHERE i.resolved_path = ? ORDER BY f.path, i.ordinal",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("importers of: %w", err)
	}
	return imps, nil
}

// FilesResolvingTo returns the IDs of files with at least one import
// resolved to one of paths.
func (s *Store) FilesResolvingTo(paths []string) ([]int64, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT DISTINCT file_id FROM imports WHERE resolved_path IN (?) ORDER BY file_id", paths)
	if err != nil {
		return nil, fmt.Errorf("expand files resolving to: %w", err)
	}
	var ids []int64
	if err := s.db.Select(&ids, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("files resolving to: %w", err)
	}
	return ids, nil
}

// ResolvedEdges returns the distinct resolved file-to-file edges, sorted.
func (s *Store) ResolvedEdges() ([]Edge, error) {
	var edges []Edge
	err := s.db.Select(&edges,
		`SELECT DISTINCT f.path AS source, i.resolved_path AS target
		 FROM imports i JOIN files f ON f.id = i.file_id
		 WHERE i.resolved_path IS NOT NULL
		 ORDER BY source, target`,
	)
	if err != nil {
		return nil, fmt.Errorf("resolved edges: %w", err)
	}
	return edges, nil
}

// SetImportResolutions writes a resolution pass in one transaction.
func (s *Store) SetImportResolutions(resolutions []Resolution) error {
	if len(resolutions) == 0 {
		return nil
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("set resolutions: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex("UPDATE imports SET resolved_path = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("set resolutions: prepare: %w", err)
	}
	defer stmt.Close()
	for _, r := range resolutions {
		if _, err := stmt.Exec(r.ResolvedPath, r.ImportID); err != nil {
			return fmt.Errorf("set resolution for import %d: %w", r.ImportID, err)
		}
	}
	return tx.Commit()
}
