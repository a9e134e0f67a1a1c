package imports

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// csharpUsing matches `using Namespace.Type;` and `using Alias = Namespace.Type;`.
// Group 1 is everything after the keyword's whitespace, group 2 the dotted
// path. RE2 has no lookahead, so `using static` and `using global` forms are
// rejected afterwards by excludedUsing.
var csharpUsing = regexp.MustCompile(lineStart + wideSpace + `*using` + wideSpace +
	`+((?:\w+` + wideSpace + `*=` + wideSpace + `*)?([\w.]+));`)

// CSharpResolver maps `using` directives to .cs files by treating namespaces
// as directory paths.
type CSharpResolver struct{}

func (CSharpResolver) Name() string { return "csharp" }

func (CSharpResolver) Supports(path string) bool {
	return strings.HasSuffix(path, ".cs")
}

func (CSharpResolver) Extract(content string) []string {
	var out []string
	off := 0
	for off < len(content) {
		loc := csharpUsing.FindStringSubmatchIndex(content[off:])
		if loc == nil {
			break
		}
		// resume is the byte from which the next line start is searched.
		resume := off + loc[0]
		if !excludedUsing(content[off+loc[2] : off+loc[3]]) {
			out = append(out, content[off+loc[4]:off+loc[5]])
			resume = off + loc[1] - 1
		}
		// A rejected match may hide another one starting on a later line
		// inside its span, so the scan restarts at the next line start
		// rather than at the end of the match.
		next := nextLineStart(content[resume:])
		if next < 0 {
			break
		}
		off = resume + next
	}
	return out
}

// excludedUsing reports whether the text following `using ` starts with
// `static` or `global` followed by whitespace.
func excludedUsing(rest string) bool {
	for _, kw := range [...]string{"static", "global"} {
		if len(rest) > len(kw) && strings.HasPrefix(rest, kw) {
			if r, _ := utf8.DecodeRuneInString(rest[len(kw):]); isWideSpace(r) {
				return true
			}
		}
	}
	return false
}

// Resolve looks for `/<a>/<b>/<C>.cs`, then falls back to `/<C>.cs` using
// only the last segment.
func (CSharpResolver) Resolve(raw, currentFile string, files *FileSet) (string, bool) {
	candidates := files.WithSuffix("/" + strings.ReplaceAll(raw, ".", "/") + ".cs")
	if len(candidates) == 0 {
		typeName := raw[strings.LastIndexByte(raw, '.')+1:]
		candidates = files.WithSuffix("/" + typeName + ".cs")
	}
	return pickClosest(candidates, currentFile)
}
