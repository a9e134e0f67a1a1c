package imports

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize bounds the number of suffix lookups a FileSet remembers.
const DefaultMemoSize = 4096

// FileSet is an immutable snapshot of repository-relative file paths.
//
// Lookups go through a basename index and an LRU memo; both are internal and
// never change which paths a lookup returns. A FileSet is safe for concurrent
// use by any number of resolvers.
type FileSet struct {
	paths   []string
	members map[string]struct{}
	byBase  map[string][]string
	memo    *lru.Cache[string, []string]
}

// NewFileSet builds a snapshot from paths. Duplicates are dropped and the
// snapshot iterates in lexicographic order.
func NewFileSet(paths []string) *FileSet {
	return NewFileSetWithMemo(paths, DefaultMemoSize)
}

// NewFileSetWithMemo is NewFileSet with an explicit memo size. A size of zero
// or less disables memoization.
func NewFileSetWithMemo(paths []string, memoSize int) *FileSet {
	fs := &FileSet{
		members: make(map[string]struct{}, len(paths)),
		byBase:  make(map[string][]string),
	}
	for _, p := range paths {
		if _, dup := fs.members[p]; dup {
			continue
		}
		fs.members[p] = struct{}{}
		fs.paths = append(fs.paths, p)
	}
	sort.Strings(fs.paths)
	for _, p := range fs.paths {
		b := base(p)
		fs.byBase[b] = append(fs.byBase[b], p)
	}
	if memoSize > 0 {
		fs.memo, _ = lru.New[string, []string](memoSize)
	}
	return fs
}

// Len returns the number of paths in the snapshot.
func (f *FileSet) Len() int { return len(f.paths) }

// Contains reports whether path is in the snapshot.
func (f *FileSet) Contains(path string) bool {
	_, ok := f.members[path]
	return ok
}

// Paths returns a sorted copy of every path.
func (f *FileSet) Paths() []string {
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	return out
}

// WithSuffix returns every path ending with suffix, sorted. The returned
// slice is shared and must not be modified.
func (f *FileSet) WithSuffix(suffix string) []string {
	return f.lookup("s\x00"+suffix, func() []string {
		pool := f.paths
		if i := strings.LastIndexByte(suffix, '/'); i >= 0 && i < len(suffix)-1 {
			pool = f.byBase[suffix[i+1:]]
		}
		var out []string
		for _, p := range pool {
			if strings.HasSuffix(p, suffix) {
				out = append(out, p)
			}
		}
		return out
	})
}

// MatchingPath returns every path equal to rel or ending with "/"+rel,
// sorted. The returned slice is shared and must not be modified.
func (f *FileSet) MatchingPath(rel string) []string {
	return f.lookup("m\x00"+rel, func() []string {
		pool := f.paths
		if b := base(rel); b != "" {
			pool = f.byBase[b]
		}
		var out []string
		for _, p := range pool {
			if p == rel || strings.HasSuffix(p, "/"+rel) {
				out = append(out, p)
			}
		}
		return out
	})
}

func (f *FileSet) lookup(key string, scan func() []string) []string {
	if f.memo == nil {
		return scan()
	}
	if v, ok := f.memo.Get(key); ok {
		return v
	}
	v := scan()
	f.memo.Add(key, v)
	return v
}

// base returns the part of p after its last '/'.
func base(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}
