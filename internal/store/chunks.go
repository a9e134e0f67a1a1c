package store

import "fmt"

const chunkCols = `id, file_id, ordinal, node_type, name, context_path,
	start_byte, end_byte, start_line, end_line, leading_comment, content`

func (s *Store) InsertChunk(c *Chunk) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO chunks (file_id, ordinal, node_type, name, context_path,
			start_byte, end_byte, start_line, end_line, leading_comment, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Ordinal, c.NodeType, c.Name, c.ContextPath,
		c.StartByte, c.EndByte, c.StartLine, c.EndLine, c.LeadingComment, c.Content,
	)
	if err != nil {
		return 0, fmt.Errorf("insert chunk: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

// ChunksByFile returns a file's chunks in pre-order.
func (s *Store) ChunksByFile(fileID int64) ([]*Chunk, error) {
	var chunks []*Chunk
	if err := s.db.Select(&chunks, "SELECT "+chunkCols+" FROM chunks WHERE file_id = ? ORDER BY ordinal", fileID); err != nil {
		return nil, fmt.Errorf("chunks by file: %w", err)
	}
	return chunks, nil
}

// ChunksCoveringLine returns the chunks of a file whose line span contains
// line, outermost first.
func (s *Store) ChunksCoveringLine(fileID int64, line int) ([]*Chunk, error) {
	var chunks []*Chunk
	err := s.db.Select(&chunks,
		"SELECT "+chunkCols+" FROM chunks WHERE file_id = ? AND start_line <= ? AND end_line >= ? ORDER BY ordinal",
		fileID, line, line,
	)
	if err != nil {
		return nil, fmt.Errorf("chunks covering line: %w", err)
	}
	return chunks, nil
}

// ChunksByNodeType returns every chunk of the given node type across files.
func (s *Store) ChunksByNodeType(nodeType string) ([]*Chunk, error) {
	var chunks []*Chunk
	if err := s.db.Select(&chunks, "SELECT "+chunkCols+" FROM chunks WHERE node_type = ? ORDER BY file_id, ordinal", nodeType); err != nil {
		return nil, fmt.Errorf("chunks by node type: %w", err)
	}
	return chunks, nil
}
