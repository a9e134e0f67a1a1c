package imports

import (
	"regexp"
	"sort"
	"strings"
)

// pythonImport matches both statement forms. Group 1 is the module of a
// `from X import ...`; group 2 is the comma list of a plain `import`.
var pythonImport = regexp.MustCompile(`(?m)^[ \t]*(?:from[ \t]+(\.+[\w.]*|[\w.]+)[ \t]+import\b|import[ \t]+([\w.]+(?:[ \t]+as[ \t]+\w+)?(?:[ \t]*,[ \t]*[\w.]+(?:[ \t]+as[ \t]+\w+)?)*))`)

// PythonResolver resolves absolute and relative module imports to .py files
// or package __init__.py files.
type PythonResolver struct{}

func (PythonResolver) Name() string { return "python" }

func (PythonResolver) Supports(path string) bool {
	return strings.HasSuffix(path, ".py") || strings.HasSuffix(path, ".pyi")
}

func (PythonResolver) Extract(content string) []string {
	var out []string
	for _, m := range pythonImport.FindAllStringSubmatch(content, -1) {
		if m[1] != "" {
			out = append(out, m[1])
			continue
		}
		for _, part := range strings.Split(m[2], ",") {
			name := strings.Fields(part)
			if len(name) > 0 {
				out = append(out, name[0])
			}
		}
	}
	return out
}

func (PythonResolver) Resolve(raw, currentFile string, files *FileSet) (string, bool) {
	if strings.HasPrefix(raw, ".") {
		return resolveRelativePython(raw, currentFile, files)
	}
	modPath := strings.ReplaceAll(raw, ".", "/")
	for _, p := range []string{modPath + ".py", modPath + "/__init__.py"} {
		if files.Contains(p) {
			return p, true
		}
	}
	candidates := append([]string(nil), files.WithSuffix("/"+modPath+".py")...)
	candidates = append(candidates, files.WithSuffix("/"+modPath+"/__init__.py")...)
	sort.Strings(candidates)
	return pickClosest(candidates, currentFile)
}

// resolveRelativePython handles `from .x import y` style imports. One dot is
// the current package; each extra dot climbs one directory.
func resolveRelativePython(raw, currentFile string, files *FileSet) (string, bool) {
	dots := len(raw) - len(strings.TrimLeft(raw, "."))
	pkg := dir(currentFile)
	for i := 1; i < dots; i++ {
		if pkg == "" {
			return "", false
		}
		pkg = dir(pkg)
	}
	join := func(rest string) string {
		if pkg == "" {
			return rest
		}
		return pkg + "/" + rest
	}

	rest := strings.ReplaceAll(raw[dots:], ".", "/")
	var try []string
	if rest == "" {
		try = []string{join("__init__.py")}
	} else {
		try = []string{join(rest + ".py"), join(rest + "/__init__.py")}
	}
	for _, p := range try {
		if files.Contains(p) {
			return p, true
		}
	}
	return "", false
}
