package thicket

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findModuleRoot walks up from cwd to find go.mod, returning the repo root.
func findModuleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find module root")
		}
		dir = parent
	}
}

func labelsOf(t *testing.T, q *QueryBuilder, path string) []string {
	t.Helper()
	chunks, err := q.Chunks(path)
	require.NoError(t, err)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Label())
	}
	return out
}

// TestIntegration_SelfIndex chunks a curated set of thicket's own Go files.
func TestIntegration_SelfIndex(t *testing.T) {
	modRoot := findModuleRoot(t)
	e := newTestEngine(t, modRoot, WithLanguages("go"))
	ctx := context.Background()

	files := []string{
		filepath.Join(modRoot, "engine.go"),
		filepath.Join(modRoot, "query.go"),
		filepath.Join(modRoot, "internal", "store", "store.go"),
		filepath.Join(modRoot, "internal", "store", "types.go"),
		"README.md",
	}
	require.NoError(t, e.IndexFiles(ctx, files))
	require.NoError(t, e.Resolve(ctx))

	q := e.Query()
	indexed, err := q.Files()
	require.NoError(t, err)
	assert.Len(t, indexed, 4)

	engineLabels := labelsOf(t, q, "engine.go")
	assert.Contains(t, engineLabels, "type Engine")
	assert.Contains(t, engineLabels, "func New")
	assert.Contains(t, engineLabels, "func Resolve")

	storeLabels := labelsOf(t, q, "internal/store/store.go")
	assert.Contains(t, storeLabels, "func NewStore")
	assert.Contains(t, storeLabels, "func Migrate")

	funcs, err := q.ChunksByNodeType("method_declaration")
	require.NoError(t, err)
	assert.NotEmpty(t, funcs)

	// Go has no import resolver.
	deps, err := q.Dependencies("engine.go")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

// TestIntegration_JavaAndPython exercises the resolvers beyond C# and C++.
func TestIntegration_JavaAndPython(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main/java/com/acme/app/Main.java", `package com.acme.app;

import java.util.List;
import com.acme.model.User;

public class Main {
    void run() {}
}
`)
	writeFile(t, root, "src/main/java/com/acme/model/User.java", `package com.acme.model;

public class User {}
`)
	writeFile(t, root, "app/main.py", `from pkg.util import helper
import os

def main():
    helper()
`)
	writeFile(t, root, "pkg/util.py", `def helper():
    pass
`)
	writeFile(t, root, "pkg/__init__.py", "")

	e := newTestEngine(t, root)
	indexAndResolve(t, e)
	q := e.Query()

	assert.Equal(t, []string{"class Main", "run"}, labelsOf(t, q, "src/main/java/com/acme/app/Main.java"))
	assert.Equal(t, []string{"def main"}, labelsOf(t, q, "app/main.py"))

	edges, err := q.Edges()
	require.NoError(t, err)
	assert.Equal(t, []Edge{
		{Source: "app/main.py", Target: "pkg/util.py"},
		{Source: "src/main/java/com/acme/app/Main.java", Target: "src/main/java/com/acme/model/User.java"},
	}, edges)

	unresolved, err := q.Unresolved("")
	require.NoError(t, err)
	var raws []string
	for _, imp := range unresolved {
		raws = append(raws, imp.RawImport)
	}
	assert.Equal(t, []string{"os", "java.util.List"}, raws)
}

// TestIntegration_GraphQueries indexes a layered C++ tree and walks it.
func TestIntegration_GraphQueries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.cpp", "#include \"../core/engine.hpp\"\n#include \"core/engine.hpp\"\nint main() { return 0; }\n")
	writeFile(t, root, "core/engine.hpp", "#include \"util/log.hpp\"\nclass Engine {};\n")
	writeFile(t, root, "util/log.hpp", "#include \"core/engine.hpp\"\nclass Log {};\n")
	writeFile(t, root, "tools/cli.cpp", "#include \"util/log.hpp\"\nint main() { return 0; }\n")

	e := newTestEngine(t, root)
	indexAndResolve(t, e)
	q := e.Query()

	deps, err := q.TransitiveDependencies("app/main.cpp", 10)
	require.NoError(t, err)
	require.NotNil(t, deps)
	assert.Equal(t, map[string]int{"app/main.cpp": 0, "core/engine.hpp": 1, "util/log.hpp": 2}, nodeDepths(deps))

	dependents, err := q.TransitiveDependents("util/log.hpp", 1)
	require.NoError(t, err)
	require.NotNil(t, dependents)
	assert.Equal(t, map[string]int{"util/log.hpp": 0, "core/engine.hpp": 1, "tools/cli.cpp": 1}, nodeDepths(dependents))

	graph, err := q.DirectoryDependencyGraph()
	require.NoError(t, err)
	assert.Equal(t, []DirectoryEdge{
		{From: "app", To: "core", ImportCount: 1},
		{From: "core", To: "util", ImportCount: 1},
		{From: "tools", To: "util", ImportCount: 1},
		{From: "util", To: "core", ImportCount: 1},
	}, graph.Edges)

	cycles, err := q.CircularDependencies()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"core", "util", "core"}}, cycles)
}

// TestIntegration_ExplicitReindexAfterEdit re-indexes a single file by
// absolute path without a directory scan.
func TestIntegration_ExplicitReindexAfterEdit(t *testing.T) {
	root := writeSampleRepo(t)
	e := newTestEngine(t, root)
	indexAndResolve(t, e)

	writeFile(t, root, "src/App/Program.cs", "using App.Models;\nclass Program {}\n")
	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{filepath.Join(root, "src", "App", "Program.cs")}))
	require.NoError(t, e.Resolve(ctx))

	assert.Equal(t, []string{"class Program"}, labelsOf(t, e.Query(), "src/App/Program.cs"))
	resolved := resolvedOf(t, e, "src/App/Program.cs")
	require.Len(t, resolved, 1)
	require.NotNil(t, resolved["App.Models"])
	assert.Equal(t, "src/App/Models.cs", *resolved["App.Models"])
}
