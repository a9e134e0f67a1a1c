package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CommitBatch inserts all buffered rows of a BatchedStore within a single
// transaction. Fake IDs on the buffered values are replaced by the real
// ones SQLite assigns. File IDs must already be real.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Chunks {
		c := &batch.Chunks[i]
		if c.FileID <= 0 {
			return fmt.Errorf("commit batch: chunk %q has unassigned file_id %d", c.Label(), c.FileID)
		}
		realID, err := insertChunkTx(tx, c)
		if err != nil {
			return fmt.Errorf("commit batch: chunk %q: %w", c.Label(), err)
		}
		c.ID = realID
	}

	for i := range batch.Imports {
		imp := &batch.Imports[i]
		if imp.FileID <= 0 {
			return fmt.Errorf("commit batch: import %q has unassigned file_id %d", imp.RawImport, imp.FileID)
		}
		realID, err := insertImportTx(tx, imp)
		if err != nil {
			return fmt.Errorf("commit batch: import %q: %w", imp.RawImport, err)
		}
		imp.ID = realID
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---

func insertChunkTx(tx *sqlx.Tx, c *Chunk) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO chunks (file_id, ordinal, node_type, name, context_path,
			start_byte, end_byte, start_line, end_line, leading_comment, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Ordinal, c.NodeType, c.Name, c.ContextPath,
		c.StartByte, c.EndByte, c.StartLine, c.EndLine, c.LeadingComment, c.Content,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertImportTx(tx *sqlx.Tx, imp *Import) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO imports (file_id, ordinal, raw_import, resolved_path) VALUES (?, ?, ?, ?)",
		imp.FileID, imp.Ordinal, imp.RawImport, imp.ResolvedPath,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
