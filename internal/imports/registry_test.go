package imports

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonPrefixLength(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 0},
		{"src/a/b.cs", "src/a/c.cs", 6},
		{"src/ab", "src/abc", 6},
		{"same", "same", 4},
		{"x", "y", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CommonPrefixLength(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		assert.Equal(t, tt.want, CommonPrefixLength(tt.b, tt.a), "%q vs %q", tt.b, tt.a)
	}
}

func TestPickClosest_RawCharacterPrefix(t *testing.T) {
	t.Parallel()
	// Character prefixes ignore segment boundaries: "src/abc/x.h" shares
	// more characters with "src/abd/main.c" than "src/x.h" does.
	got, ok := pickClosest([]string{"lib/x.h", "src/abc/x.h"}, "src/abd/main.c")
	require.True(t, ok)
	assert.Equal(t, "src/abc/x.h", got)

	_, ok = pickClosest(nil, "a")
	assert.False(t, ok)
}

func TestFileSet_Basics(t *testing.T) {
	t.Parallel()
	fs := NewFileSet([]string{"b/x.h", "a/x.h", "b/x.h", "c.h"})
	assert.Equal(t, 3, fs.Len())
	assert.Equal(t, []string{"a/x.h", "b/x.h", "c.h"}, fs.Paths())
	assert.True(t, fs.Contains("c.h"))
	assert.False(t, fs.Contains("x.h"))
}

func TestFileSet_IndexedLookupsMatchFullScan(t *testing.T) {
	t.Parallel()
	paths := []string{
		"a/util.h", "b/util.h", "util.h", "a/myutil.h", "a/b/util.h",
		"src/Foo/Bar.cs", "Bar.cs", "x/Bar.cs", "x/FooBar.cs",
	}
	indexed := NewFileSet(paths)
	noMemo := NewFileSetWithMemo(paths, 0)

	scanSuffix := func(suffix string) []string {
		var out []string
		for _, p := range indexed.Paths() {
			if len(p) >= len(suffix) && p[len(p)-len(suffix):] == suffix {
				out = append(out, p)
			}
		}
		return out
	}

	for _, suffix := range []string{"/util.h", "/b/util.h", "/Bar.cs", "Bar.cs", "/Foo/Bar.cs", "/nothing.h", "/"} {
		want := scanSuffix(suffix)
		assert.Equal(t, want, indexed.WithSuffix(suffix), suffix)
		assert.Equal(t, want, indexed.WithSuffix(suffix), "memoized %s", suffix)
		assert.Equal(t, want, noMemo.WithSuffix(suffix), "no memo %s", suffix)
	}

	assert.Equal(t, []string{"a/b/util.h", "a/util.h", "b/util.h", "util.h"}, indexed.MatchingPath("util.h"))
	assert.Equal(t, []string{"a/b/util.h", "b/util.h"}, indexed.MatchingPath("b/util.h"))
	assert.Empty(t, indexed.MatchingPath("dir/"))
}

func TestFileSet_ConcurrentResolution(t *testing.T) {
	t.Parallel()
	var paths []string
	for i := range 50 {
		paths = append(paths, fmt.Sprintf("mod%d/include/common.h", i))
	}
	files := NewFileSetWithMemo(paths, 8)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, ok := CppResolver{}.Resolve("include/common.h", fmt.Sprintf("mod%d/src/a.c", i), files)
			if ok {
				results[i] = got
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, fmt.Sprintf("mod%d/include/common.h", i), got)
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	t.Parallel()
	reg := DefaultRegistry()

	for path, want := range map[string]string{
		"a/Program.cs": "csharp",
		"a/main.cpp":   "cpp",
		"a/util.h":     "cpp",
		"a/Main.java":  "java",
		"a/app.py":     "python",
	} {
		res, ok := reg.For(path)
		require.True(t, ok, path)
		assert.Equal(t, want, res.Name(), path)
	}

	_, ok := reg.For("main.go")
	assert.False(t, ok)
	assert.Nil(t, reg.Extract("main.go", `import "fmt"`))
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(CppResolver{}, CSharpResolver{})
	res, ok := reg.For("x.h")
	require.True(t, ok)
	assert.Equal(t, "cpp", res.Name())
	assert.Len(t, reg.Resolvers(), 2)
}

func TestRegistry_Edges(t *testing.T) {
	t.Parallel()
	reg := DefaultRegistry()
	files := NewFileSet([]string{"src/util.h", "src/a.cpp", "lib/log.h"})

	edges := reg.Edges("src/a.cpp", "#include \"util.h\"\n#include <vector>\n#include \"log.h\"\n#include \"gone.h\"\n", files)
	require.Len(t, edges, 3)

	assert.Equal(t, "src/a.cpp", edges[0].SourceFile)
	assert.Equal(t, "util.h", edges[0].RawImport)
	require.NotNil(t, edges[0].ResolvedFile)
	assert.Equal(t, "src/util.h", *edges[0].ResolvedFile)

	require.NotNil(t, edges[1].ResolvedFile)
	assert.Equal(t, "lib/log.h", *edges[1].ResolvedFile)

	assert.Equal(t, "gone.h", edges[2].RawImport)
	assert.Nil(t, edges[2].ResolvedFile)

	assert.Nil(t, reg.Edges("main.go", "package main", files))
}

func TestRegistry_Idempotent(t *testing.T) {
	t.Parallel()
	reg := DefaultRegistry()
	files := NewFileSet([]string{"a/Bar.cs", "b/Bar.cs", "src/Foo/Bar.cs"})
	content := "using Foo.Bar;\nusing X.Bar;\nusing static System.Math;\n"

	first := reg.Edges("a/Main.cs", content, files)
	second := reg.Edges("a/Main.cs", content, files)
	assert.Equal(t, first, second)

	r := reg.Resolve("a/Main.cs", "X.Bar", files)
	require.NotNil(t, r)
	assert.Equal(t, "a/Bar.cs", *r)
	assert.Nil(t, reg.Resolve("a/Main.go", "X.Bar", files))
}
