package imports

import (
	"regexp"
	"strings"
)

var javaImport = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;`)

// JavaResolver resolves `import a.b.C;` to a/b/C.java. Static member imports
// and nested class imports resolve to the enclosing top-level class file.
type JavaResolver struct{}

func (JavaResolver) Name() string { return "java" }

func (JavaResolver) Supports(path string) bool {
	return strings.HasSuffix(path, ".java")
}

func (JavaResolver) Extract(content string) []string {
	var out []string
	for _, m := range javaImport.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}

// Resolve drops trailing segments until a file matches, then falls back to
// the last segment as a bare class name. Wildcard imports name a package
// directory and never resolve to a single file.
func (JavaResolver) Resolve(raw, currentFile string, files *FileSet) (string, bool) {
	if strings.HasSuffix(raw, ".*") {
		return "", false
	}
	segs := strings.Split(raw, ".")
	for n := len(segs); n > 0; n-- {
		if n < len(segs) && !startsUpper(segs[n-1]) {
			// Only class names can enclose members or nested classes.
			break
		}
		suffix := "/" + strings.Join(segs[:n], "/") + ".java"
		if c := files.WithSuffix(suffix); len(c) > 0 {
			return pickClosest(c, currentFile)
		}
	}
	return pickClosest(files.WithSuffix("/"+segs[len(segs)-1]+".java"), currentFile)
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}
