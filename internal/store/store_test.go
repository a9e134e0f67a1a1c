package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path, lang string) *File {
	t.Helper()
	f := &File{Path: path, Language: lang, Hash: "abc123", LineCount: 10, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func insertTestChunk(t *testing.T, s *Store, fileID int64, ordinal int, path []string, start, end int) *Chunk {
	t.Helper()
	c := &Chunk{
		FileID:      fileID,
		Ordinal:     ordinal,
		NodeType:    "class_declaration",
		Name:        ptr(path[len(path)-1]),
		ContextPath: path,
		StartLine:   start,
		EndLine:     end,
		Content:     "class X {}",
	}
	id, err := s.InsertChunk(c)
	require.NoError(t, err)
	require.Positive(t, id)
	return c
}

func insertTestImport(t *testing.T, s *Store, fileID int64, ordinal int, raw string, resolved *string) *Import {
	t.Helper()
	imp := &Import{FileID: fileID, Ordinal: ordinal, RawImport: raw, ResolvedPath: resolved}
	id, err := s.InsertImport(imp)
	require.NoError(t, err)
	require.Positive(t, id)
	return imp
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "chunks", "imports", "metadata"} {
		var name string
		err := s.db.Get(&name, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	require.NoError(t, s.db.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// File operations
// =============================================================================

func TestFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	f := &File{Path: "src/Program.cs", Language: "c_sharp", Hash: "00ff", LineCount: 42, LastIndexed: now}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	assert.Equal(t, id, f.ID)

	got, err := s.FileByPath("src/Program.cs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "c_sharp", got.Language)
	assert.Equal(t, "00ff", got.Hash)
	assert.Equal(t, 42, got.LineCount)
	assert.WithinDuration(t, now, got.LastIndexed, time.Second)
}

func TestFile_ByPathNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FileByPath("nonexistent.cs")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFile_UniquePath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "a.c", "c")
	_, err := s.InsertFile(&File{Path: "a.c", Language: "c", Hash: "x"})
	assert.Error(t, err)
}

func TestFile_Update(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.c", "c")
	f.Hash = "new"
	f.LineCount = 3
	require.NoError(t, s.UpdateFile(f))

	got, err := s.FileByPath("a.c")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "new", got.Hash)
	assert.Equal(t, 3, got.LineCount)
}

func TestFile_ByLanguageAndAll(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "b.cpp", "cpp")
	insertTestFile(t, s, "a.cpp", "cpp")
	insertTestFile(t, s, "c.py", "python")

	cppFiles, err := s.FilesByLanguage("cpp")
	require.NoError(t, err)
	require.Len(t, cppFiles, 2)
	assert.Equal(t, "a.cpp", cppFiles[0].Path)

	paths, err := s.AllPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cpp", "b.cpp", "c.py"}, paths)

	all, err := s.AllFiles()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMetadata_GetSet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("rules_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("rules_hash", "one"))
	require.NoError(t, s.SetMetadata("rules_hash", "two"))
	v, err = s.GetMetadata("rules_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

// =============================================================================
// Chunks
// =============================================================================

func TestChunk_InsertAndQueryByFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "src/App.cs", "c_sharp")

	insertTestChunk(t, s, f.ID, 1, []string{"namespace App", "class Program"}, 3, 9)
	insertTestChunk(t, s, f.ID, 0, []string{"namespace App"}, 1, 10)

	chunks, err := s.ChunksByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, StringList{"namespace App"}, chunks[0].ContextPath)
	assert.Equal(t, "class Program", chunks[1].Label())
	require.NotNil(t, chunks[1].Name)
	assert.Nil(t, chunks[1].LeadingComment)
}

func TestChunk_NullableFieldsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.go", "go")

	_, err := s.InsertChunk(&Chunk{
		FileID:         f.ID,
		NodeType:       "function_declaration",
		ContextPath:    StringList{""},
		LeadingComment: ptr("// doc\n// more"),
		StartLine:      1,
		EndLine:        2,
	})
	require.NoError(t, err)

	chunks, err := s.ChunksByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Name)
	require.NotNil(t, chunks[0].LeadingComment)
	assert.Equal(t, "// doc\n// more", *chunks[0].LeadingComment)
	assert.Equal(t, StringList{""}, chunks[0].ContextPath)
}

func TestChunk_CoveringLine(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs", "c_sharp")
	insertTestChunk(t, s, f.ID, 0, []string{"namespace A"}, 1, 20)
	insertTestChunk(t, s, f.ID, 1, []string{"namespace A", "class B"}, 3, 10)
	insertTestChunk(t, s, f.ID, 2, []string{"namespace A", "class C"}, 12, 18)

	chunks, err := s.ChunksCoveringLine(f.ID, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "namespace A", chunks[0].Label())
	assert.Equal(t, "class B", chunks[1].Label())

	chunks, err = s.ChunksCoveringLine(f.ID, 25)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_ByNodeType(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs", "c_sharp")
	insertTestChunk(t, s, f.ID, 0, []string{"class A"}, 1, 2)

	chunks, err := s.ChunksByNodeType("class_declaration")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	chunks, err = s.ChunksByNodeType("method_declaration")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

// =============================================================================
// Imports
// =============================================================================

func TestImport_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "src/a.cpp", "cpp")

	insertTestImport(t, s, f.ID, 1, "missing.h", nil)
	insertTestImport(t, s, f.ID, 0, "util.h", ptr("src/util.h"))

	imps, err := s.ImportsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, imps, 2)
	assert.Equal(t, "util.h", imps[0].RawImport)
	assert.Equal(t, "src/a.cpp", imps[0].SourcePath)
	require.NotNil(t, imps[0].ResolvedPath)
	assert.Equal(t, "src/util.h", *imps[0].ResolvedPath)
	assert.Nil(t, imps[1].ResolvedPath)
}

func TestImport_AllAndForFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	b := insertTestFile(t, s, "b.cpp", "cpp")
	a := insertTestFile(t, s, "a.cpp", "cpp")
	insertTestImport(t, s, b.ID, 0, "x.h", nil)
	insertTestImport(t, s, a.ID, 0, "y.h", nil)
	insertTestImport(t, s, a.ID, 1, "z.h", nil)

	all, err := s.AllImports()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.cpp", all[0].SourcePath)
	assert.Equal(t, "z.h", all[1].RawImport)
	assert.Equal(t, "b.cpp", all[2].SourcePath)

	some, err := s.ImportsForFiles([]int64{b.ID})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "x.h", some[0].RawImport)

	none, err := s.ImportsForFiles(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestImport_SetResolutions(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cpp", "cpp")
	i1 := insertTestImport(t, s, f.ID, 0, "x.h", ptr("stale.h"))
	i2 := insertTestImport(t, s, f.ID, 1, "y.h", nil)

	require.NoError(t, s.SetImportResolutions([]Resolution{
		{ImportID: i1.ID, ResolvedPath: nil},
		{ImportID: i2.ID, ResolvedPath: ptr("inc/y.h")},
	}))

	imps, err := s.ImportsByFile(f.ID)
	require.NoError(t, err)
	assert.Nil(t, imps[0].ResolvedPath)
	require.NotNil(t, imps[1].ResolvedPath)
	assert.Equal(t, "inc/y.h", *imps[1].ResolvedPath)

	require.NoError(t, s.SetImportResolutions(nil))
}

func TestImport_ImportersAndEdges(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	util := insertTestFile(t, s, "util.h", "c")
	a := insertTestFile(t, s, "a.c", "c")
	b := insertTestFile(t, s, "b.c", "c")
	insertTestImport(t, s, a.ID, 0, "util.h", ptr("util.h"))
	insertTestImport(t, s, a.ID, 1, "./util.h", ptr("util.h"))
	insertTestImport(t, s, b.ID, 0, "util.h", ptr("util.h"))
	insertTestImport(t, s, b.ID, 1, "a.c", ptr("a.c"))
	insertTestImport(t, s, util.ID, 0, "nope.h", nil)

	importers, err := s.ImportersOf("util.h")
	require.NoError(t, err)
	require.Len(t, importers, 3)
	assert.Equal(t, "a.c", importers[0].SourcePath)

	ids, err := s.FilesResolvingTo([]string{"util.h"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, ids)

	edges, err := s.ResolvedEdges()
	require.NoError(t, err)
	assert.Equal(t, []Edge{
		{Source: "a.c", Target: "util.h"},
		{Source: "b.c", Target: "a.c"},
		{Source: "b.c", Target: "util.h"},
	}, edges)
}

// =============================================================================
// Deletion
// =============================================================================

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs", "c_sharp")
	insertTestChunk(t, s, f.ID, 0, []string{"class A"}, 1, 3)
	insertTestImport(t, s, f.ID, 0, "System", nil)

	require.NoError(t, s.DeleteFileData(f.ID))

	chunks, _ := s.ChunksByFile(f.ID)
	assert.Empty(t, chunks)
	imps, _ := s.ImportsByFile(f.ID)
	assert.Empty(t, imps)

	got, err := s.FileByPath("a.cs")
	require.NoError(t, err)
	assert.NotNil(t, got, "file record survives DeleteFileData")
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs", "c_sharp")
	insertTestChunk(t, s, f.ID, 0, []string{"class A"}, 1, 3)

	require.NoError(t, s.DeleteFile(f.ID))
	got, err := s.FileByPath("a.cs")
	require.NoError(t, err)
	assert.Nil(t, got)

	var n int
	require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM chunks"))
	assert.Zero(t, n)
}

func TestDeleteFilesNotIn(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "keep.c", "c")
	gone := insertTestFile(t, s, "gone.c", "c")
	insertTestImport(t, s, gone.ID, 0, "keep.h", nil)
	insertTestFile(t, s, "also/gone.c", "c")

	removed, err := s.DeleteFilesNotIn([]string{"keep.c", "never-indexed.c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"also/gone.c", "gone.c"}, removed)

	paths, err := s.AllPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.c"}, paths)

	imps, err := s.ImportsByFile(gone.ID)
	require.NoError(t, err)
	assert.Empty(t, imps)

	removed, err = s.DeleteFilesNotIn([]string{"keep.c"})
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	a := ContentHash([]byte("using System;"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, ContentHash([]byte("using System;")))
	assert.NotEqual(t, a, ContentHash([]byte("using System.IO;")))
}

func TestStringList_Scan(t *testing.T) {
	t.Parallel()
	var l StringList
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, StringList{"a", "b"}, l)
	require.NoError(t, l.Scan([]byte(`[]`)))
	assert.Empty(t, l)
	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)
	assert.Error(t, l.Scan(42))

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestDriverSelection(t *testing.T) {
	t.Parallel()
	switch BuildMode {
	case "cgo":
		assert.Equal(t, "sqlite3", DriverName)
	case "purego":
		assert.Equal(t, "sqlite", DriverName)
	default:
		t.Fatalf("unexpected build mode %q", BuildMode)
	}
	assert.Contains(t, dsnOptions, "foreign_keys")
}

func TestQueryReadOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "a.cs", "c_sharp")
	insertTestFile(t, s, "b.cs", "c_sharp")

	var paths []any
	err := s.QueryReadOnly(context.Background(), "SELECT path FROM files ORDER BY path", nil, func(row map[string]any) error {
		paths = append(paths, row["path"])
		return nil
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	err = s.QueryReadOnly(context.Background(), "DELETE FROM files", nil, func(map[string]any) error { return nil })
	require.Error(t, err)
	err = s.QueryReadOnly(context.Background(), "SELECT 1; DELETE FROM files", nil, func(map[string]any) error { return nil })
	require.Error(t, err)

	files, err := s.AllFiles()
	require.NoError(t, err)
	assert.Len(t, files, 2)
	require.NoError(t, s.SetMetadata("k", "v"))
}
