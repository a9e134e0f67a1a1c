package imports

import "regexp"

// cppInclude matches quoted includes only; angle-bracket includes name
// system or library headers that live outside the repository.
var cppInclude = regexp.MustCompile(lineStart + wideSpace + `*#` + wideSpace + `*include` + wideSpace + `+"([^"]+)"`)

var cppExtensions = map[string]bool{
	".c": true, ".cpp": true, ".cc": true, ".cxx": true,
	".h": true, ".hpp": true, ".hh": true, ".hxx": true,
}

// CppResolver resolves quoted #include directives for C and C++.
type CppResolver struct{}

func (CppResolver) Name() string { return "cpp" }

func (CppResolver) Supports(path string) bool {
	return cppExtensions[extension(path)]
}

func (CppResolver) Extract(content string) []string {
	var out []string
	for _, m := range cppInclude.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}

// Resolve first tries the include relative to the including file's
// directory, joined literally without cleaning, and then any file whose path
// is the include or ends with "/" + include.
func (CppResolver) Resolve(raw, currentFile string, files *FileSet) (string, bool) {
	rel := raw
	if d := dir(currentFile); d != "" {
		rel = d + "/" + raw
	}
	if files.Contains(rel) {
		return rel, true
	}
	return pickClosest(files.MatchingPath(raw), currentFile)
}
