package thicket

import (
	"github.com/jward/thicket/internal/chunker"
	"github.com/jward/thicket/internal/imports"
	"github.com/jward/thicket/internal/store"
)

// Public type aliases for internal types used in the Engine and
// QueryBuilder API. External consumers use these names; no conversion is
// needed.

type Store = store.Store
type File = store.File
type Chunk = store.Chunk
type Import = store.Import
type Edge = store.Edge
type ImportEdge = imports.ImportEdge
type SourceChunk = chunker.Chunk
