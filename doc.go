// Package thicket indexes source repositories into hierarchical code chunks
// and a file-level import graph, built on tree-sitter and stored in SQLite.
//
// # Pipeline
//
// Thicket operates in two phases:
//
//  1. Index: For each source file, parse with tree-sitter, cut the syntax
//     tree into chunks (one per class, function, namespace and similar
//     hierarchy node, each carrying its context path and leading comment),
//     extract raw import statements, and write both to SQLite.
//
//  2. Resolve: Map every raw import to a file in the indexed universe using
//     the per-language resolvers (C#, C/C++, Java, Python). Resolution is
//     deterministic: ambiguous candidates go to the path sharing the longest
//     prefix with the importing file, then to the lexicographically first.
//
// # Usage
//
// Create an Engine, index a directory, resolve, and query:
//
//	e, err := thicket.New("thicket.db", "path/to/project")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx)
//	err = e.Resolve(ctx)
//
//	q := e.Query()
//	chunk, err := q.ChunkAt("src/App/Program.cs", 10)
//
// The stateless entry points [ChunkSource] and [ResolveImports] run one
// phase over in-memory input without a database.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.Chunks] and [QueryBuilder.ChunkAt]: the chunks of a file
//     and the innermost chunk covering a line.
//   - [QueryBuilder.Dependencies] and [QueryBuilder.Dependents]: direct
//     imports in both directions.
//   - [QueryBuilder.TransitiveDependencies] and
//     [QueryBuilder.TransitiveDependents]: bounded BFS over resolved edges.
//   - [QueryBuilder.DirectoryDependencyGraph] and
//     [QueryBuilder.CircularDependencies]: imports aggregated by directory.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] skips files whose content hash is unchanged. A changed
// file only re-resolves its own imports; a removed file re-resolves the
// files that pointed at it; a new file triggers a full resolve, since it may
// be the best candidate for any import. Use [WithLanguages] to restrict
// which languages the Engine processes.
package thicket
