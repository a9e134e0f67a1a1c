package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/config"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	for _, f := range []string{"json", "text", "yaml"} {
		assert.NoError(t, validateFormat(f))
	}
	err := validateFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json, text, yaml")
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"c_sharp", "cpp"}, splitList(" c_sharp, ,cpp "))
	assert.Nil(t, splitList(""))
}

func TestParseLineArg(t *testing.T) {
	t.Parallel()
	n, err := parseLineArg("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseLineArg("0")
	assert.Error(t, err)
	_, err = parseLineArg("x")
	assert.Error(t, err)
}

func TestStoredPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	file := filepath.Join(root, "src", "a.cs")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0o644))

	assert.Equal(t, "src/a.cs", storedPath(root, file))
	// Non-existent arguments are taken as root-relative already.
	assert.Equal(t, "src/b.cs", storedPath(root, "src/./b.cs"))
	// Existing files outside the root keep their cleaned form.
	outside := filepath.Join(t.TempDir(), "x.cs")
	require.NoError(t, os.WriteFile(outside, nil, 0o644))
	assert.Equal(t, filepath.ToSlash(outside), storedPath(root, outside))
}

func TestWriteResult_Formats(t *testing.T) {
	t.Parallel()
	resolved := "src/b.h"
	result := CLIResult{
		Command: "deps",
		Results: []CLIImport{
			{File: "src/a.c", Raw: "b.h", Resolved: &resolved},
			{File: "src/a.c", Raw: "gone.h"},
		},
	}

	var js bytes.Buffer
	require.NoError(t, writeResult(&js, "json", result))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "deps", decoded["command"])
	assert.Len(t, decoded["results"], 2)

	var ym bytes.Buffer
	require.NoError(t, writeResult(&ym, "yaml", result))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, "deps", fromYAML["command"])
	assert.Contains(t, ym.String(), "resolved: src/b.h")

	var txt bytes.Buffer
	require.NoError(t, writeResult(&txt, "text", result))
	lines := strings.Split(strings.TrimSpace(txt.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"FILE", "IMPORT", "RESOLVED"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"src/a.c", "b.h", "src/b.h"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"src/a.c", "gone.h", "-"}, strings.Fields(lines[2]))
}

func TestWriteResultText_Graphs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, writeResultText(&buf, CLIResult{Results: CLIDirectoryGraph{
		Directories: []thicket.DirectoryNode{{Name: "a", FileCount: 1, LineCount: 3}, {Name: "b", FileCount: 2, LineCount: 4}},
		Edges:       []thicket.DirectoryEdge{{From: "a", To: "b", ImportCount: 2}},
		Cycles:      [][]string{{"a", "b", "a"}},
	}}))
	out := buf.String()
	assert.Contains(t, out, "DIRECTORY")
	assert.Contains(t, out, "a -> b -> a")

	buf.Reset()
	require.NoError(t, writeResultText(&buf, CLIResult{Results: &thicket.FileGraph{
		Root:  "a.c",
		Nodes: []thicket.FileGraphNode{{Path: "a.c"}, {Path: "b.h", Depth: 1}},
	}}))
	assert.Equal(t, "a.c\n  b.h\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResultText(&buf, CLIResult{}))
	assert.Empty(t, buf.String())

	assert.Error(t, writeResultText(&buf, CLIResult{Results: 42}))
}

// --- In-process command tests ---
//
// These share rootCmd and the package flag variables, so they do not run
// in parallel.

// resetFlags restores every flag to its default between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	errorHandled = false
	cfg = config.Default()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// indexFixture writes a small C++ and C# tree, indexes it into its own
// database, and returns the root and the --db value.
func indexFixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	writeRepoFile(t, root, "src/engine/main.cpp", "#include \"engine.h\"\n#include \"../util/log.h\"\n#include <vector>\n\nint main() { return 0; }\n")
	writeRepoFile(t, root, "src/engine/engine.h", "#include \"util/log.h\"\nstruct engine { int n; };\n")
	writeRepoFile(t, root, "src/util/log.h", "// Logging.\nvoid log_line(const char *s);\n")
	writeRepoFile(t, root, "src/App/Program.cs", "using App.Models;\nnamespace App\n{\n    class Program\n    {\n        static void Main() { }\n    }\n}\n")
	writeRepoFile(t, root, "src/App/Models.cs", "namespace App.Models\n{\n    class User { }\n}\n")

	db := filepath.Join(t.TempDir(), "index.db")
	_, err := runCLI(t, "--db", db, "index", root)
	require.NoError(t, err)
	return root, db
}

func decodeJSON(t *testing.T, out string) CLIResultJSON {
	t.Helper()
	var r CLIResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

// CLIResultJSON mirrors CLIResult with raw results for decoding.
type CLIResultJSON struct {
	Command    string          `json:"command"`
	Results    json.RawMessage `json:"results"`
	TotalCount *int            `json:"total_count"`
	Error      string          `json:"error"`
}

func TestCLI_IndexAndQuery(t *testing.T) {
	root, db := indexFixture(t)
	assert.FileExists(t, db)

	out, err := runCLI(t, "--db", db, "files")
	require.NoError(t, err)
	r := decodeJSON(t, out)
	var files []CLIFile
	require.NoError(t, json.Unmarshal(r.Results, &files))
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{"src/App/Models.cs", "src/App/Program.cs", "src/engine/engine.h", "src/engine/main.cpp", "src/util/log.h"}, paths)

	out, err = runCLI(t, "--db", db, "chunks", "src/App/Program.cs")
	require.NoError(t, err)
	r = decodeJSON(t, out)
	var chunks []CLIChunk
	require.NoError(t, json.Unmarshal(r.Results, &chunks))
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"namespace App", "class Program", "Main"}, chunks[2].ContextPath)
	assert.Empty(t, chunks[2].Content)
	require.NotNil(t, r.TotalCount)
	assert.Equal(t, 3, *r.TotalCount)

	// Absolute paths map back to stored paths.
	out, err = runCLI(t, "--db", db, "chunks", "--content", filepath.Join(root, "src", "App", "Models.cs"))
	require.NoError(t, err)
	r = decodeJSON(t, out)
	require.NoError(t, json.Unmarshal(r.Results, &chunks))
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[1].Content, "class User")

	out, err = runCLI(t, "--db", db, "chunk-at", "src/App/Program.cs", "6")
	require.NoError(t, err)
	r = decodeJSON(t, out)
	var at CLIChunk
	require.NoError(t, json.Unmarshal(r.Results, &at))
	assert.Equal(t, "Main", at.Label)
}

func TestCLI_DepsAndDependents(t *testing.T) {
	_, db := indexFixture(t)

	out, err := runCLI(t, "--db", db, "deps", "src/engine/main.cpp")
	require.NoError(t, err)
	r := decodeJSON(t, out)
	var deps []CLIImport
	require.NoError(t, json.Unmarshal(r.Results, &deps))
	require.Len(t, deps, 2)
	assert.Equal(t, "engine.h", deps[0].Raw)
	require.NotNil(t, deps[0].Resolved)
	assert.Equal(t, "src/engine/engine.h", *deps[0].Resolved)
	// The relative join is not cleaned and nothing ends with "/../util/log.h".
	assert.Equal(t, "../util/log.h", deps[1].Raw)
	assert.Nil(t, deps[1].Resolved)

	out, err = runCLI(t, "--db", db, "dependents", "src/util/log.h")
	require.NoError(t, err)
	r = decodeJSON(t, out)
	var dependents []CLIImport
	require.NoError(t, json.Unmarshal(r.Results, &dependents))
	require.Len(t, dependents, 1)
	assert.Equal(t, "src/engine/engine.h", dependents[0].File)

	out, err = runCLI(t, "--db", db, "unresolved")
	require.NoError(t, err)
	r = decodeJSON(t, out)
	var unresolved []CLIImport
	require.NoError(t, json.Unmarshal(r.Results, &unresolved))
	require.Len(t, unresolved, 1)
	assert.Equal(t, "../util/log.h", unresolved[0].Raw)
}

func TestCLI_GraphAndTransitive(t *testing.T) {
	_, db := indexFixture(t)

	out, err := runCLI(t, "--db", db, "--format", "yaml", "graph")
	require.NoError(t, err)
	var decoded struct {
		Command string            `yaml:"command"`
		Results CLIDirectoryGraph `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "graph", decoded.Command)
	require.Len(t, decoded.Results.Edges, 1)
	assert.Equal(t, thicket.DirectoryEdge{From: "src/engine", To: "src/util", ImportCount: 1}, decoded.Results.Edges[0])
	assert.Empty(t, decoded.Results.Cycles)

	out, err = runCLI(t, "--db", db, "--format", "text", "transitive", "src/engine/main.cpp")
	require.NoError(t, err)
	assert.Equal(t, "src/engine/main.cpp\n  src/engine/engine.h\n    src/util/log.h\n", out)

	out, err = runCLI(t, "--db", db, "--format", "text", "transitive", "--reverse", "--depth", "1", "src/util/log.h")
	require.NoError(t, err)
	assert.Equal(t, "src/util/log.h\n  src/engine/engine.h\n", out)
}

func TestCLI_Script(t *testing.T) {
	_, db := indexFixture(t)
	script := filepath.Join(t.TempDir(), "count.risor")
	require.NoError(t, os.WriteFile(script, []byte(`
cs := chunks("src/App/Program.cs")
summary := {"chunks": len(cs), "files": len(files()), "arg": args[0]}
summary
`), 0o644))

	out, err := runCLI(t, "--db", db, "script", script, "hello")
	require.NoError(t, err)
	r := decodeJSON(t, out)
	var value map[string]any
	require.NoError(t, json.Unmarshal(r.Results, &value))
	assert.Equal(t, float64(3), value["chunks"])
	assert.Equal(t, float64(5), value["files"])
	assert.Equal(t, "hello", value["arg"])

	out, err = runCLI(t, "--db", db, "script", "summary")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(decodeJSON(t, out).Results, &value))
	assert.Equal(t, float64(5), value["files"])
	assert.Equal(t, float64(1), value["unresolved"])

	_, err = runCLI(t, "--db", db, "script", filepath.Join(t.TempDir(), "missing.risor"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundled: hotspots, outline, summary")
}

func TestCLI_Errors(t *testing.T) {
	_, db := indexFixture(t)

	out, err := runCLI(t, "--db", db, "chunks", "src/nope.cs")
	require.Error(t, err)
	assert.True(t, errorHandled)
	r := decodeJSON(t, out)
	assert.Equal(t, "chunks", r.Command)
	assert.Contains(t, r.Error, "file not indexed")

	_, err = runCLI(t, "--db", filepath.Join(t.TempDir(), "none.db"), "files")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	_, err = runCLI(t, "--db", db, "--format", "xml", "files")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestCLI_ForceReindex(t *testing.T) {
	root, db := indexFixture(t)
	writeRepoFile(t, root, "src/util/extra.h", "struct extra { int x; };\n")

	_, err := runCLI(t, "--db", db, "index", "--force", "--languages", "cpp,c", root)
	require.NoError(t, err)

	out, err := runCLI(t, "--db", db, "files")
	require.NoError(t, err)
	var files []CLIFile
	require.NoError(t, json.Unmarshal(decodeJSON(t, out).Results, &files))
	for _, f := range files {
		assert.NotEqual(t, "c_sharp", f.Language, f.Path)
	}
	assert.Len(t, files, 4)
}

func TestEdgeDiff(t *testing.T) {
	t.Parallel()
	before := []thicket.Edge{{Source: "a.h", Target: "b.h"}, {Source: "c.cpp", Target: "a.h"}}
	after := []thicket.Edge{{Source: "a.h", Target: "b.h"}, {Source: "c.cpp", Target: "d.h"}}

	diff, err := edgeDiff(before, after)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- edges (before)")
	assert.Contains(t, diff, "-c.cpp -> a.h\n")
	assert.Contains(t, diff, "+c.cpp -> d.h\n")
	assert.Contains(t, diff, " a.h -> b.h\n")

	same, err := edgeDiff(before, before)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestCLI_IndexDiff(t *testing.T) {
	root, db := indexFixture(t)
	writeRepoFile(t, root, "src/engine/main.cpp", "#include \"../util/log.h\"\n\nint main() { return 0; }\n")

	out, err := runCLI(t, "--db", db, "index", "--diff", root)
	require.NoError(t, err)
	assert.Contains(t, out, "-src/engine/main.cpp -> src/engine/engine.h\n")
	assert.NotContains(t, out, "\n+src/")

	out, err = runCLI(t, "--db", db, "index", "--diff", root)
	require.NoError(t, err)
	assert.Empty(t, out)
}
