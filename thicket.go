package thicket

import (
	"context"
	"fmt"

	"github.com/jward/thicket/internal/chunker"
	"github.com/jward/thicket/internal/imports"
	"github.com/jward/thicket/internal/parse"
)

// Version is reported by the CLI and the MCP server.
const Version = "0.3.0"

// ErrUnsupportedLanguage is returned when a language has no grammar or no
// hierarchy table.
var ErrUnsupportedLanguage = chunker.ErrUnsupportedLanguage

// ChunkSource chunks src without touching an index. language is a
// language identifier such as "c_sharp"; use LanguageForFile to derive it
// from a path.
func ChunkSource(ctx context.Context, src []byte, language string) ([]SourceChunk, error) {
	chunks, err := chunker.ChunkSource(ctx, src, language)
	if err != nil {
		return nil, fmt.Errorf("thicket: %w", err)
	}
	return chunks, nil
}

// LanguageForFile returns the language identifier for a path's extension.
func LanguageForFile(path string) (string, bool) {
	return parse.LanguageForFile(path)
}

// ResolveImports extracts and resolves the imports of one file against an
// explicit file universe, without an index.
func ResolveImports(sourceFile, content string, universe []string) []ImportEdge {
	return imports.DefaultRegistry().Edges(sourceFile, content, imports.NewFileSet(universe))
}
