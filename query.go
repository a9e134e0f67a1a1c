package thicket

import (
	"fmt"

	"github.com/jward/thicket/internal/store"
)

// QueryBuilder provides read access to an index.
type QueryBuilder struct {
	store *store.Store
}

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.AllFiles()
}

// File returns the indexed file at path, or nil if it is not indexed.
func (q *QueryBuilder) File(path string) (*File, error) {
	return q.store.FileByPath(path)
}

// Chunks returns the chunks of a file in pre-order. Returns nil, nil if
// the file is not indexed.
func (q *QueryBuilder) Chunks(path string) ([]*Chunk, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("chunks: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.ChunksByFile(f.ID)
}

// ChunkAt returns the innermost chunk whose line span covers line
// (1-based). When sibling chunks share the line the first one wins.
// Returns nil, nil when no chunk covers it.
func (q *QueryBuilder) ChunkAt(path string, line int) (*Chunk, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("chunk at: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	covering, err := q.store.ChunksCoveringLine(f.ID, line)
	if err != nil {
		return nil, fmt.Errorf("chunk at: %w", err)
	}
	var best *Chunk
	for _, c := range covering {
		if best == nil || len(c.ContextPath) > len(best.ContextPath) {
			best = c
		}
	}
	return best, nil
}

// ChunksByNodeType returns every chunk of a syntax node type across files.
func (q *QueryBuilder) ChunksByNodeType(nodeType string) ([]*Chunk, error) {
	return q.store.ChunksByNodeType(nodeType)
}

// Dependencies returns the imports of a file in source order, resolved or
// not. Returns nil, nil if the file is not indexed.
func (q *QueryBuilder) Dependencies(path string) ([]*Import, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.ImportsByFile(f.ID)
}

// Dependents returns the imports, across all files, that resolved to path.
func (q *QueryBuilder) Dependents(path string) ([]*Import, error) {
	imps, err := q.store.ImportersOf(path)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	return imps, nil
}

// Unresolved returns imports that did not resolve to any indexed file. An
// empty path means every file.
func (q *QueryBuilder) Unresolved(path string) ([]*Import, error) {
	var imps []*Import
	if path == "" {
		all, err := q.store.AllImports()
		if err != nil {
			return nil, fmt.Errorf("unresolved: %w", err)
		}
		imps = all
	} else {
		deps, err := q.Dependencies(path)
		if err != nil {
			return nil, fmt.Errorf("unresolved: %w", err)
		}
		imps = deps
	}

	var out []*Import
	for _, imp := range imps {
		if imp.ResolvedPath == nil {
			out = append(out, imp)
		}
	}
	return out, nil
}

// Edges returns the distinct resolved file-to-file edges, sorted.
func (q *QueryBuilder) Edges() ([]Edge, error) {
	return q.store.ResolvedEdges()
}
