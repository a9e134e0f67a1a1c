package scripts_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/thicket"
	"github.com/jward/thicket/internal/runtime"
	"github.com/jward/thicket/scripts"
)

// queryTestEnv wraps an indexed engine and a runtime reading the embedded
// queries.
type queryTestEnv struct {
	engine *thicket.Engine
	rt     *runtime.Runtime
	t      *testing.T
}

func newQueryTestEnv(t *testing.T) *queryTestEnv {
	t.Helper()
	root := t.TempDir()
	for rel, content := range map[string]string{
		"src/engine/main.cpp": "#include \"engine.h\"\n#include \"../util/log.h\"\nint main() { return 0; }\n",
		"src/engine/engine.h": "#include \"util/log.h\"\nstruct engine { int n; };\n",
		"src/util/log.h":      "void log_line(const char *s);\n",
		"src/App/Program.cs":  "using App.Models;\nnamespace App\n{\n    class Program\n    {\n        static void Main() { }\n    }\n}\n",
		"src/App/Models.cs":   "namespace App.Models\n{\n    class User { }\n}\n",
	} {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	e, err := thicket.New(filepath.Join(t.TempDir(), "test.db"), root)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	require.NoError(t, e.IndexDirectory(ctx))
	require.NoError(t, e.Resolve(ctx))

	rt := runtime.NewRuntime(e.Store(), "", runtime.WithRuntimeFS(scripts.FS))
	return &queryTestEnv{engine: e, rt: rt, t: t}
}

// run evaluates a named embedded query with string arguments.
func (env *queryTestEnv) run(name string, args ...string) any {
	env.t.Helper()
	p, ok := scripts.Path(name)
	require.True(env.t, ok, name)

	items := make([]object.Object, len(args))
	for i, a := range args {
		items[i] = object.NewString(a)
	}
	value, err := env.rt.EvalScript(context.Background(), p, map[string]any{
		"root": env.engine.Root(),
		"args": object.NewList(items),
	})
	require.NoError(env.t, err)
	return value
}

func TestNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"hotspots", "outline", "summary"}, scripts.Names())

	_, ok := scripts.Path("missing")
	assert.False(t, ok)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	env := newQueryTestEnv(t)

	got, ok := env.run("summary").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(5), got["files"])
	assert.Equal(t, int64(3), got["edges"])
	assert.Equal(t, int64(1), got["unresolved"])

	languages := got["languages"].(map[string]any)
	require.Len(t, languages, 3)
	cs := languages["c_sharp"].(map[string]any)
	assert.Equal(t, int64(2), cs["files"])
	assert.Equal(t, int64(5), cs["chunks"])
	assert.Equal(t, int64(12), cs["lines"])
	assert.Equal(t, int64(2), languages["c"].(map[string]any)["files"])
	assert.Equal(t, int64(1), languages["cpp"].(map[string]any)["files"])
}

func TestHotspots(t *testing.T) {
	t.Parallel()
	env := newQueryTestEnv(t)

	got := env.run("hotspots")
	assert.Equal(t, map[string]any{
		"src/App/Models.cs":   int64(1),
		"src/engine/engine.h": int64(1),
		"src/util/log.h":      int64(1),
	}, got)
}

func TestOutline(t *testing.T) {
	t.Parallel()
	env := newQueryTestEnv(t)

	got, ok := env.run("outline", "src/App/Program.cs").([]any)
	require.True(t, ok)
	require.Len(t, got, 3)

	var labels []string
	var depths []int64
	for _, item := range got {
		m := item.(map[string]any)
		labels = append(labels, m["label"].(string))
		depths = append(depths, m["depth"].(int64))
	}
	assert.Equal(t, []string{"namespace App", "class Program", "Main"}, labels)
	assert.Equal(t, []int64{1, 2, 3}, depths)

	first := got[0].(map[string]any)
	assert.Equal(t, []any{int64(2), int64(8)}, first["lines"])
}

func TestOutline_UnknownFileIsEmpty(t *testing.T) {
	t.Parallel()
	env := newQueryTestEnv(t)
	got := env.run("outline", "src/none.cs")
	assert.Empty(t, got)
}
