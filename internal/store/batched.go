package store

import "sync"

// BatchedStore buffers extraction inserts in memory using fake (negative)
// IDs. It implements DataStore so extraction code can write to it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// The mutex protects fake ID allocation and slice appends. Reads merge the
// buffer with rows already committed through the underlying Store.
type BatchedStore struct {
	store *Store
	mu    sync.Mutex

	Chunks  []Chunk
	Imports []Import

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for reads.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertChunk(c *Chunk) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Chunks = append(b.Chunks, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertImport(imp *Import) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	imp.ID = fakeID
	b.Imports = append(b.Imports, *imp)
	return fakeID, nil
}

// Len is the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Chunks) + len(b.Imports)
}

// ChunksByFile returns committed chunks for a file followed by buffered ones.
func (b *BatchedStore) ChunksByFile(fileID int64) ([]*Chunk, error) {
	chunks, err := b.store.ChunksByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Chunks {
		if b.Chunks[i].FileID == fileID {
			chunks = append(chunks, &b.Chunks[i])
		}
	}
	return chunks, nil
}

// ImportsByFile returns committed imports for a file followed by buffered ones.
func (b *BatchedStore) ImportsByFile(fileID int64) ([]*Import, error) {
	imps, err := b.store.ImportsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Imports {
		if b.Imports[i].FileID == fileID {
			imps = append(imps, &b.Imports[i])
		}
	}
	return imps, nil
}
