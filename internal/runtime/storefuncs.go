package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/risor-io/risor/object"

	"github.com/jward/thicket/internal/imports"
	"github.com/jward/thicket/internal/store"
)

// Index host functions return Risor lists of maps with primitive values.
// Risor cannot construct Go struct pointers, so records are flattened
// Go-side.

func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.NewArgsRangeError("files", 0, 1, len(args))
		}

		var (
			files []*store.File
			err   error
		)
		if len(args) == 1 {
			lang, convErr := toString(args[0])
			if convErr != nil {
				return object.Errorf("files: %v", convErr)
			}
			files, err = s.FilesByLanguage(lang)
		} else {
			files, err = s.AllFiles()
		}
		if err != nil {
			return object.Errorf("files: %v", err)
		}

		results := make([]object.Object, 0, len(files))
		for _, f := range files {
			results = append(results, fileToMap(f))
		}
		return object.NewList(results)
	})
}

func makeChunksFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("chunks", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("chunks", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("chunks: %v", err)
		}

		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("chunks: %v", err)
		}
		if f == nil {
			return object.NewList([]object.Object{})
		}
		chunks, err := s.ChunksByFile(f.ID)
		if err != nil {
			return object.Errorf("chunks: %v", err)
		}
		return chunksToList(chunks)
	})
}

// makeChunkAtFn returns the innermost chunk covering a line, or nil.
//
// chunk_at(path, line) → map or nil
func makeChunkAtFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("chunk_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("chunk_at", 2, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("chunk_at: %v", err)
		}
		line, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("chunk_at: %v", err)
		}

		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("chunk_at: %v", err)
		}
		if f == nil {
			return object.Nil
		}
		covering, err := s.ChunksCoveringLine(f.ID, int(line))
		if err != nil {
			return object.Errorf("chunk_at: %v", err)
		}
		var best *store.Chunk
		for _, c := range covering {
			if best == nil || len(c.ContextPath) > len(best.ContextPath) {
				best = c
			}
		}
		if best == nil {
			return object.Nil
		}
		return chunkToMap(best)
	})
}

func makeDependenciesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("dependencies", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("dependencies", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("dependencies: %v", err)
		}

		f, err := s.FileByPath(path)
		if err != nil {
			return object.Errorf("dependencies: %v", err)
		}
		if f == nil {
			return object.NewList([]object.Object{})
		}
		imps, err := s.ImportsByFile(f.ID)
		if err != nil {
			return object.Errorf("dependencies: %v", err)
		}
		return importsToList(imps)
	})
}

func makeDependentsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("dependents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("dependents", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("dependents: %v", err)
		}

		imps, err := s.ImportersOf(path)
		if err != nil {
			return object.Errorf("dependents: %v", err)
		}
		return importsToList(imps)
	})
}

func makeEdgesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("edges", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("edges", 0, len(args))
		}
		edges, err := s.ResolvedEdges()
		if err != nil {
			return object.Errorf("edges: %v", err)
		}
		results := make([]object.Object, 0, len(edges))
		for _, e := range edges {
			results = append(results, object.NewMap(map[string]object.Object{
				"source": object.NewString(e.Source),
				"target": object.NewString(e.Target),
			}))
		}
		return object.NewList(results)
	})
}

// makeResolveImportFn resolves a raw import of a file against the indexed
// paths. The universe is loaded on first call and reused for the rest of
// the script.
//
// resolve_import(path, raw) → string or nil
func makeResolveImportFn(s *store.Store, reg *imports.Registry) *object.Builtin {
	var (
		once    sync.Once
		files   *imports.FileSet
		loadErr error
	)
	return object.NewBuiltin("resolve_import", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("resolve_import", 2, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("resolve_import: path: %v", err)
		}
		raw, err := toString(args[1])
		if err != nil {
			return object.Errorf("resolve_import: raw: %v", err)
		}

		once.Do(func() {
			paths, err := s.AllPaths()
			if err != nil {
				loadErr = err
				return
			}
			files = imports.NewFileSet(paths)
		})
		if loadErr != nil {
			return object.Errorf("resolve_import: %v", loadErr)
		}
		return optionalString(reg.Resolve(path, raw, files))
	})
}

// makeDBQueryFn creates a db_query bridge that executes SQL on a connection
// that refuses writes. Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		// Convert remaining args to query parameters.
		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, arg.Inspect())
			}
		}

		results := []object.Object{}
		err = s.QueryReadOnly(ctx, sqlStr, queryArgs, func(row map[string]any) error {
			m := make(map[string]object.Object, len(row))
			for col, v := range row {
				m[col] = sqlValueToObject(v)
			}
			results = append(results, object.NewMap(m))
			return nil
		})
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		return object.NewList(results)
	})
}

// --- Conversion helpers ---

func fileToMap(f *store.File) object.Object {
	return object.NewMap(map[string]object.Object{
		"id":         object.NewInt(f.ID),
		"path":       object.NewString(f.Path),
		"language":   object.NewString(f.Language),
		"hash":       object.NewString(f.Hash),
		"line_count": object.NewInt(int64(f.LineCount)),
	})
}

func chunkToMap(c *store.Chunk) object.Object {
	return object.NewMap(map[string]object.Object{
		"id":              object.NewInt(c.ID),
		"ordinal":         object.NewInt(int64(c.Ordinal)),
		"node_type":       object.NewString(c.NodeType),
		"name":            optionalString(c.Name),
		"label":           object.NewString(c.Label()),
		"context_path":    stringList(c.ContextPath),
		"start_byte":      object.NewInt(int64(c.StartByte)),
		"end_byte":        object.NewInt(int64(c.EndByte)),
		"start_line":      object.NewInt(int64(c.StartLine)),
		"end_line":        object.NewInt(int64(c.EndLine)),
		"leading_comment": optionalString(c.LeadingComment),
		"content":         object.NewString(c.Content),
	})
}

func chunksToList(chunks []*store.Chunk) object.Object {
	results := make([]object.Object, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, chunkToMap(c))
	}
	return object.NewList(results)
}

func importsToList(imps []*store.Import) object.Object {
	results := make([]object.Object, 0, len(imps))
	for _, imp := range imps {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":       object.NewInt(imp.ID),
			"source":   object.NewString(imp.SourcePath),
			"ordinal":  object.NewInt(int64(imp.Ordinal)),
			"raw":      object.NewString(imp.RawImport),
			"resolved": optionalString(imp.ResolvedPath),
		}))
	}
	return object.NewList(results)
}

func stringList(values []string) object.Object {
	items := make([]object.Object, 0, len(values))
	for _, v := range values {
		items = append(items, object.NewString(v))
	}
	return object.NewList(items)
}

func optionalString(s *string) object.Object {
	if s == nil {
		return object.Nil
	}
	return object.NewString(*s)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
