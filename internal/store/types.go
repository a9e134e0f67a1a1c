package store

import "time"

type File struct {
	ID          int64     `db:"id" json:"id" yaml:"id"`
	Path        string    `db:"path" json:"path" yaml:"path"`
	Language    string    `db:"language" json:"language" yaml:"language"`
	Hash        string    `db:"hash" json:"hash" yaml:"hash"`
	LineCount   int       `db:"line_count" json:"line_count" yaml:"line_count"`
	LastIndexed time.Time `db:"last_indexed" json:"last_indexed" yaml:"last_indexed"`
}

// Chunk is a stored hierarchy chunk. Ordinal is the chunk's pre-order
// position within its file.
type Chunk struct {
	ID             int64      `db:"id" json:"id" yaml:"id"`
	FileID         int64      `db:"file_id" json:"file_id" yaml:"file_id"`
	Ordinal        int        `db:"ordinal" json:"ordinal" yaml:"ordinal"`
	NodeType       string     `db:"node_type" json:"node_type" yaml:"node_type"`
	Name           *string    `db:"name" json:"name" yaml:"name"`
	ContextPath    StringList `db:"context_path" json:"context_path" yaml:"context_path"`
	StartByte      int        `db:"start_byte" json:"start_byte" yaml:"start_byte"`
	EndByte        int        `db:"end_byte" json:"end_byte" yaml:"end_byte"`
	StartLine      int        `db:"start_line" json:"start_line" yaml:"start_line"`
	EndLine        int        `db:"end_line" json:"end_line" yaml:"end_line"`
	LeadingComment *string    `db:"leading_comment" json:"leading_comment,omitempty" yaml:"leading_comment,omitempty"`
	Content        string     `db:"content" json:"content" yaml:"content"`
}

// Label is the chunk's own rendered label.
func (c *Chunk) Label() string {
	if len(c.ContextPath) == 0 {
		return ""
	}
	return c.ContextPath[len(c.ContextPath)-1]
}

// Import is one raw import of a file. ResolvedPath is nil until a
// resolution pass finds a target. SourcePath is filled by queries that join
// the owning file and is not a column of the imports table.
type Import struct {
	ID           int64   `db:"id" json:"id" yaml:"id"`
	FileID       int64   `db:"file_id" json:"file_id" yaml:"file_id"`
	Ordinal      int     `db:"ordinal" json:"ordinal" yaml:"ordinal"`
	RawImport    string  `db:"raw_import" json:"raw_import" yaml:"raw_import"`
	ResolvedPath *string `db:"resolved_path" json:"resolved_path" yaml:"resolved_path"`
	SourcePath   string  `db:"source_path" json:"source_path" yaml:"source_path"`
}

// Resolution assigns a resolved path (or nil) to one import row.
type Resolution struct {
	ImportID     int64
	ResolvedPath *string
}

// Edge is a resolved file-to-file dependency.
type Edge struct {
	Source string `db:"source" json:"source" yaml:"source"`
	Target string `db:"target" json:"target" yaml:"target"`
}
