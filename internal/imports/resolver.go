// Package imports extracts raw import strings from source text and resolves
// them to files inside a repository snapshot.
//
// Resolution is purely textual: a raw import is mapped to a path suffix and
// matched against the snapshot's repository-relative paths. Nothing here
// reads files or consults build systems.
package imports

import (
	"strings"
	"unicode/utf8"
)

// wideSpace matches ASCII whitespace plus \v, the Unicode space separators,
// U+2028, U+2029 and U+FEFF. RE2's \s is ASCII only and would miss a
// byte-order mark or a no-break space before a directive.
const wideSpace = `[\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`

// lineStart stands in for a multiline ^ whose line terminators include \r,
// U+2028 and U+2029. It consumes the terminator, so a pattern built on it
// must be applied from a line start.
const lineStart = `(?:\A|[\n\r\x{2028}\x{2029}])`

// lineTerminators are the characters lineStart accepts.
const lineTerminators = "\n\r\u2028\u2029"

// nextLineStart returns the offset just past the first line terminator in
// s, or -1 when s has none.
func nextLineStart(s string) int {
	i := strings.IndexAny(s, lineTerminators)
	if i < 0 {
		return -1
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return i + size
}

func isWideSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

// Resolver handles one language family.
type Resolver interface {
	// Name identifies the resolver in logs and stored edges.
	Name() string
	// Supports reports whether the resolver handles a path, by extension only.
	Supports(path string) bool
	// Extract returns raw import strings in order of appearance. Duplicates
	// are kept.
	Extract(content string) []string
	// Resolve maps a raw import to a file in files. The second result is
	// false when nothing matches.
	Resolve(raw, currentFile string, files *FileSet) (string, bool)
}

// ImportEdge is one extracted import and, if found, the file it resolves to.
type ImportEdge struct {
	SourceFile   string  `json:"source_file" yaml:"source_file"`
	RawImport    string  `json:"raw_import" yaml:"raw_import"`
	ResolvedFile *string `json:"resolved_file" yaml:"resolved_file"`
}

// CommonPrefixLength counts the leading bytes a and b share. It compares raw
// characters, not path segments, so "src/ab" and "src/abc" share 6.
func CommonPrefixLength(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// pickClosest chooses among candidates the one sharing the longest prefix
// with currentFile. candidates must be sorted; on equal prefix length the
// lexicographically first candidate wins.
func pickClosest(candidates []string, currentFile string) (string, bool) {
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0], true
	}
	best := candidates[0]
	bestLen := CommonPrefixLength(best, currentFile)
	for _, c := range candidates[1:] {
		if l := CommonPrefixLength(c, currentFile); l > bestLen {
			best, bestLen = c, l
		}
	}
	return best, true
}

// extension returns the substring from the last '.' of path, or "".
func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:]
		case '/':
			return ""
		}
	}
	return ""
}

// dir returns everything before the last '/' of path, or "" when path has
// no directory part.
func dir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
