package store

// DataStore is the interface for extraction-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement this interface.
type DataStore interface {
	// Extraction inserts, each returning the assigned ID.
	InsertChunk(c *Chunk) (int64, error)
	InsertImport(imp *Import) (int64, error)

	ChunksByFile(fileID int64) ([]*Chunk, error)
	ImportsByFile(fileID int64) ([]*Import, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
